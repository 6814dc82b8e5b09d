package build

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// FormatOutput writes a build report in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats the report as a two-column table
func formatTable(w io.Writer, r *Response) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	g := r.Geometry
	rows := []struct {
		key   string
		value string
	}{
		{"Build ID", r.BuildID.String()},
		{"Image", r.ImagePath},
		{"Size", fmt.Sprintf("%s (%d sectors)", helpers.FormatSize(r.ImageSize), r.ImageSize/types.SectorSize)},
		{"VBR sector", fmt.Sprintf("%d", r.VBRSector)},
		{"Stage2 sector", fmt.Sprintf("%d (%d sectors)", r.Stage2Sector, r.Stage2Sectors)},
		{"Reserved sectors", fmt.Sprintf("%d", g.ReservedSectors)},
		{"Hidden sectors", fmt.Sprintf("%d", g.HiddenSectors)},
		{"Total sectors (16)", fmt.Sprintf("%d", g.TotalSectors16)},
		{"Total sectors (32)", fmt.Sprintf("%d", g.TotalSectors32)},
		{"Sectors per FAT", fmt.Sprintf("%d", g.SectorsPerFAT)},
		{"Duration", r.Duration.String()},
	}

	fmt.Fprintf(tw, "FIELD\tVALUE\n")
	fmt.Fprintf(tw, "-----\t-----\n")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.key, row.value)
	}
	return tw.Flush()
}

// formatJSON formats the report as JSON
func formatJSON(w io.Writer, r *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// formatYAML formats the report as YAML
func formatYAML(w io.Writer, r *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(r)
}
