package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/model"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// modelView is the JSON rendering of a model definition.
type modelView struct {
	Type         string       `json:"type"`
	Relations    types.Filter `json:"relations"`
	PostFields   []string     `json:"post_fields"`
	PutFields    []string     `json:"put_fields"`
	UniqueFields []string     `json:"unique_fields"`
	Reserved     []string     `json:"reserved"`
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models configured in config.yaml",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.close()

			var views []modelView
			for _, t := range s.registry.Types() {
				m, err := s.registry.Model(t)
				if err != nil {
					return err
				}
				views = append(views, viewOf(m.Definition()))
			}
			return writeModels(cmd, views, a.flags.jsonMode)
		},
	}
}

func viewOf(d model.Definition) modelView {
	relations := d.Relations
	if relations == nil {
		relations = types.Filter{}
	}
	return modelView{
		Type:         d.Type,
		Relations:    relations,
		PostFields:   orEmpty(d.PostFields),
		PutFields:    orEmpty(d.PutFields),
		UniqueFields: orEmpty(d.UniqueFields),
		Reserved:     orEmpty(d.Reserved),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeModels(cmd *cobra.Command, views []modelView, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		if views == nil {
			views = []modelView{}
		}
		return writeJSON(out, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "(none)")
		return nil
	}
	for _, v := range views {
		fmt.Fprintln(out, v.Type)
		rels := make([]string, 0, len(v.Relations))
		for _, r := range v.Relations {
			rels = append(rels, r.Type+" "+r.Kind.String())
		}
		for _, line := range []struct {
			label  string
			values []string
		}{
			{"relations", rels},
			{"post_fields", v.PostFields},
			{"put_fields", v.PutFields},
			{"unique_fields", v.UniqueFields},
		} {
			if len(line.values) > 0 {
				fmt.Fprintf(out, "  %s: %s\n", line.label, strings.Join(line.values, ", "))
			}
		}
	}
	return nil
}
