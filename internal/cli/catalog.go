package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/me/flowc/internal/catalog"
	"github.com/me/flowc/pkg/wf"
)

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the tool catalog",
	}
	cmd.AddCommand(
		newCatalogValidateCmd(),
		newCatalogListCmd(v),
		newCatalogImportCmd(v),
	)
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest.yaml>",
		Short: "Parse a catalog manifest and report what it declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := catalog.LoadManifest(args[0])
			if err != nil {
				return err
			}
			tools := reg.List()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tools\n", args[0], len(tools))
			return nil
		},
	}
}

func newCatalogListCmd(v *viper.Viper) *cobra.Command {
	var manifestPath, dbPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tools from a manifest or a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := loadTools(cmd, v, manifestPath, dbPath)
			if err != nil {
				return err
			}
			if len(tools) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools in catalog.")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-25s %-10s %s\n", "NAME", "VERSION", "SIGNATURE")
			for _, t := range tools {
				fmt.Fprintf(out, "%-25s %-10s %s\n", t.Name, t.Ver, signature(t))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Catalog manifest to read")
	cmd.Flags().StringVar(&dbPath, "db", "", "Catalog database to read (or FLOWC_CATALOG_DB env)")
	v.BindPFlag("catalog-db", cmd.Flags().Lookup("db"))
	return cmd
}

func newCatalogImportCmd(v *viper.Viper) *cobra.Command {
	var manifestPath, dbPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a catalog manifest into a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				return fmt.Errorf("--manifest is required")
			}
			dbPath = resolveDB(v, dbPath)
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}

			reg, err := catalog.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			st, err := catalog.NewStore(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}

			n, err := st.Import(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tools into %s\n", n, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Catalog manifest to import")
	cmd.Flags().StringVar(&dbPath, "db", "", "Catalog database to write (or FLOWC_CATALOG_DB env)")
	v.BindPFlag("catalog-db", cmd.Flags().Lookup("db"))
	return cmd
}

func loadTools(cmd *cobra.Command, v *viper.Viper, manifestPath, dbPath string) ([]*wf.Tool, error) {
	if manifestPath != "" {
		reg, err := catalog.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		return reg.List(), nil
	}
	dbPath = resolveDB(v, dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("one of --manifest or --db is required")
	}
	st, err := catalog.NewStore(dbPath, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	if err := st.Migrate(cmd.Context()); err != nil {
		return nil, err
	}
	return st.ListTools(cmd.Context())
}

func resolveDB(v *viper.Viper, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return v.GetString("catalog-db")
}

// signature renders a compact "inputs -> outputs" summary for listings.
func signature(t *wf.Tool) string {
	var in, out []string
	for _, p := range t.In {
		in = append(in, p.Type.String())
	}
	for _, p := range t.Out {
		out = append(out, p.Type.String())
	}
	return "(" + strings.Join(in, ", ") + ") -> (" + strings.Join(out, ", ") + ")"
}
