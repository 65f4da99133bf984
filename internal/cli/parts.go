package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/catalog"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

// PartsOptions holds flags for the parts command.
type PartsOptions struct {
	*RootOptions
	PartsDir string
}

// PartInfo describes one registered part.
type PartInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Traits      []string       `json:"traits"`
	Properties  []PropertyInfo `json:"properties,omitempty"`
	Delegates   []string       `json:"delegates"`
}

// PropertyInfo describes one property of a part.
type PropertyInfo struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Default    string `json:"default"`
	Access     string `json:"access"`
	Persistent bool   `json:"persistent,omitempty"`
}

// NewPartsCommand creates the parts command.
func NewPartsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PartsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parts",
		Short: "List available parts",
		Long: `List the built-in parts, plus those declared in a CUE catalog when
--parts is given, with their traits, properties and delegates.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PartsDir, "parts", "", "directory of CUE part declarations to include")

	return cmd
}

func runParts(opts *PartsOptions, cmd *cobra.Command) error {
	reg, err := parts.NewRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build registry", err)
	}
	if opts.PartsDir != "" {
		loaded, err := catalog.Load(opts.PartsDir, parts.Library())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load parts", err)
		}
		for _, p := range loaded {
			if err := reg.Include(p); err != nil {
				return WrapExitError(ExitCommandError, "failed to include part "+p.ID(), err)
			}
		}
	}

	infos := make([]PartInfo, 0, reg.Len())
	for _, p := range reg.All() {
		infos = append(infos, describePart(p))
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintf(w, "%s (%s) [%s]\n", info.ID, info.Name, strings.Join(info.Traits, ", "))
		if opts.Verbose && info.Description != "" {
			fmt.Fprintf(w, "  %s\n", info.Description)
		}
		for _, prop := range info.Properties {
			fmt.Fprintf(w, "  %-14s %-6s = %s\n", prop.ID, prop.Kind, prop.Default)
		}
		if len(info.Delegates) > 0 {
			fmt.Fprintf(w, "  delegates: %s\n", strings.Join(info.Delegates, ", "))
		}
	}
	return nil
}

func describePart(p *part.Part) PartInfo {
	info := PartInfo{
		ID:          p.ID(),
		Name:        p.Name(),
		Description: p.Description(),
		Traits:      p.Traits().Names(),
		Delegates:   p.Delegates(),
	}
	for _, spec := range p.Properties() {
		info.Properties = append(info.Properties, PropertyInfo{
			ID:         spec.ID.String(),
			Kind:       spec.Default.Kind().String(),
			Default:    value.Format(spec.Default),
			Access:     spec.Access.String(),
			Persistent: spec.Persistent,
		})
	}
	return info
}
