package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"launchgpt-go/pkg/extract"
	"launchgpt-go/pkg/payload"
	"launchgpt-go/pkg/render"
)

type renderOptions struct {
	*rootOptions
	format  string
	explain bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Extract the JSON object from model output and render its sections",
		Long: `Reads raw model output from a file (or stdin when the file is omitted or "-"),
extracts the structured object and prints it. Output without a JSON object
is printed verbatim.

Formats:
  text  sections as styled text (default)
  json  rendered sections as JSON
  yaml  the extracted object as YAML, key order preserved`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			raw, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			return runRender(cmd.OutOrStdout(), cmd.ErrOrStderr(), string(raw), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Report why each extraction strategy failed")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func runRender(out, errOut io.Writer, raw string, opts *renderOptions) error {
	res, failures := extract.Explain(raw, extract.DefaultChain...)
	if opts.explain {
		for _, f := range failures {
			fmt.Fprintln(errOut, metaStyle.Render("  "+f.Error()))
		}
	}
	if !res.IsStructured() {
		fmt.Fprintln(errOut, metaStyle.Render("no JSON object found, printing the output verbatim"))
		_, err := io.WriteString(out, res.Raw)
		return err
	}
	if opts.explain {
		fmt.Fprintln(errOut, metaStyle.Render("strategy: "+res.Strategy))
	}

	sections := render.Render(res.Payload, nil)
	switch opts.format {
	case "text":
		var st render.Styler = termStyler{}
		if opts.noColor {
			st = nil
		}
		return render.WriteText(out, sections, st)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sections)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		enc.SetIndent(2)
		return enc.Encode(toYAML(res.Payload))
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", opts.format)
	}
}

// toYAML 将 payload 转换为 yaml.Node，映射保持原有键顺序。
func toYAML(v payload.Value) *yaml.Node {
	return payload.Visit[*yaml.Node](v, yamlVisitor{})
}

type yamlVisitor struct{}

func (yamlVisitor) VisitNull() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func (yamlVisitor) VisitString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func (yamlVisitor) VisitNumber(n json.Number) *yaml.Node {
	tag := "!!float"
	if _, err := n.Int64(); err == nil {
		tag = "!!int"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.String()}
}

func (yamlVisitor) VisitBool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func (y yamlVisitor) VisitList(items []payload.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		n.Content = append(n.Content, toYAML(item))
	}
	return n
}

func (y yamlVisitor) VisitMap(fields []payload.Field) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		n.Content = append(n.Content, y.VisitString(f.Key), toYAML(f.Value))
	}
	return n
}
