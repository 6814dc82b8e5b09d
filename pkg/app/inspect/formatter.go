package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// FormatOutput writes an inspection result in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(w io.Writer, r *Response) error {
	l := r.Layout
	p := l.Partition
	g := l.Geometry

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Image\t%s\n", l.Path)
	fmt.Fprintf(tw, "Size\t%s (%d sectors)\n", helpers.FormatSize(l.Size), l.Size/types.SectorSize)
	fmt.Fprintf(tw, "Boot signature\t%02x %02x\n", l.BootSignature[0], l.BootSignature[1])
	fmt.Fprintf(tw, "\t\n")
	fmt.Fprintf(tw, "PARTITION\t\n")
	fmt.Fprintf(tw, "Active\t%v\n", p.IsActive())
	fmt.Fprintf(tw, "Type\t0x%02x\n", p.Type)
	fmt.Fprintf(tw, "First CHS\t% x\n", p.FirstCHS[:])
	fmt.Fprintf(tw, "Last CHS\t% x\n", p.LastCHS[:])
	fmt.Fprintf(tw, "Start LBA\t%d\n", p.StartLBA)
	fmt.Fprintf(tw, "Sector count\t%d\n", p.SectorCount)
	fmt.Fprintf(tw, "\t\n")
	fmt.Fprintf(tw, "BPB\t\n")
	fmt.Fprintf(tw, "Reserved sectors\t%d\n", g.ReservedSectors)
	fmt.Fprintf(tw, "Hidden sectors\t%d\n", g.HiddenSectors)
	fmt.Fprintf(tw, "Total sectors (16)\t%d\n", g.TotalSectors16)
	fmt.Fprintf(tw, "Total sectors (32)\t%d\n", g.TotalSectors32)
	fmt.Fprintf(tw, "Sectors per FAT\t%d\n", g.SectorsPerFAT)
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Valid() {
		fmt.Fprintln(w, "\nLayout OK")
		return nil
	}
	fmt.Fprintf(w, "\n%d issue(s):\n", len(r.Issues))
	for _, issue := range r.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	return nil
}
