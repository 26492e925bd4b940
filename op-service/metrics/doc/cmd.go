package doc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

var (
	Markdown = "markdown"
	JSON     = "json"
)

// NewSubcommands returns the "doc" subcommands that list the metrics a service exposes.
func NewSubcommands(m metrics.Documentor) cli.Commands {
	return cli.Commands{
		{
			Name:  "metrics",
			Usage: "Dumps a list of supported metrics to stdout",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Value: Markdown,
					Usage: "Output format (json|markdown)",
				},
			},
			Action: func(ctx *cli.Context) error {
				supportedMetrics := m.Document()
				format := ctx.String("format")
				if format != Markdown && format != JSON {
					return fmt.Errorf("invalid format: %s", format)
				}
				if format == Markdown {
					return renderMarkdown(ctx.App.Writer, supportedMetrics)
				}
				enc := json.NewEncoder(ctx.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(supportedMetrics)
			},
		},
	}
}

func renderMarkdown(w io.Writer, supportedMetrics []metrics.DocumentedMetric) error {
	data := make([][]string, 0, len(supportedMetrics))
	for _, metric := range supportedMetrics {
		labels := strings.Join(metric.Labels, ",")
		data = append(data, []string{metric.Name, metric.Help, labels, metric.Type})
	}
	table := tablewriter.NewWriter(w)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Description", "Labels", "Type"})
	table.AppendBulk(data)
	table.Render()
	return nil
}
