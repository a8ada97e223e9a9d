package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Rana718/Portal/internal/config"
	"github.com/Rana718/Portal/template"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sqliteFlag     bool
	postgresqlFlag bool
	mysqlFlag      bool
)

const definitionsFile = "portal.forms.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Portal project",
	Long: `Write ` + config.FileName + `, a starter ` + definitionsFile + ` and a .env entry for the
studio database. Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbType := template.SQLite
		flagCount := 0

		if sqliteFlag {
			dbType = template.SQLite
			flagCount++
		}
		if postgresqlFlag {
			dbType = template.PostgreSQL
			flagCount++
		}
		if mysqlFlag {
			dbType = template.MySQL
			flagCount++
		}

		if flagCount > 1 {
			return fmt.Errorf("please specify only one database type (--sqlite, --postgresql, or --mysql)")
		}

		force, _ := cmd.Flags().GetBool("force")
		return initializeProject(dbType, force)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&sqliteFlag, "sqlite", false, "Initialize project for SQLite database")
	initCmd.Flags().BoolVar(&postgresqlFlag, "postgresql", false, "Initialize project for PostgreSQL database")
	initCmd.Flags().BoolVar(&mysqlFlag, "mysql", false, "Initialize project for MySQL database")
}

func initializeProject(dbType template.DatabaseType, force bool) error {
	tmpl := template.NewProjectTemplate(dbType)

	files := []struct {
		path    string
		content string
	}{
		{config.FileName, tmpl.GetPortalConfig()},
		{definitionsFile, tmpl.GetDefinitions()},
	}

	var written, skipped []string
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !force {
			skipped = append(skipped, f.path)
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to create file %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}

	if err := handleEnvFile(tmpl.GetEnvTemplate()); err != nil {
		return fmt.Errorf("failed to handle .env file: %w", err)
	}

	color.Green("✅ Successfully initialized Portal project with %s studio database", dbType)
	fmt.Println()
	if len(written) > 0 {
		fmt.Println("📝 Files created:")
		for _, p := range written {
			fmt.Printf("   %s\n", p)
		}
	}
	for _, p := range skipped {
		fmt.Printf("ℹ️  Skipped %s (already exists, use --force to overwrite)\n", p)
	}

	if os.Getenv("PORTAL_DB_URL") != "" {
		fmt.Println()
		fmt.Println("ℹ️  Using existing PORTAL_DB_URL from environment")
	}

	fmt.Println()
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   portal studio                # Serve the forms in %s\n", definitionsFile)
	fmt.Printf("   portal rows list --form 1    # Page through the customers grid\n")
	fmt.Printf("   portal tree --form 1         # Walk the region/city tree\n")

	return nil
}

func handleEnvFile(defaultEnvContent string) error {
	envPath := ".env"

	existingContent, err := os.ReadFile(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(envPath, []byte(defaultEnvContent), 0644)
		}
		return err
	}

	existingStr := string(existingContent)
	if strings.Contains(existingStr, "PORTAL_DB_URL") {
		return nil
	}

	if len(existingStr) > 0 && !strings.HasSuffix(existingStr, "\n") {
		existingStr += "\n"
	}

	existingStr += "\n# Added by Portal\n" + defaultEnvContent

	return os.WriteFile(envPath, []byte(existingStr), 0644)
}
