package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docrev/internal/auth"
	"docrev/internal/config"
	"docrev/internal/models"
	"docrev/internal/store"
)

// seedFile is the YAML shape consumed by "docrev seed".
type seedFile struct {
	Projects []seedProject `yaml:"projects"`
	Users    []seedUser    `yaml:"users"`
}

type seedProject struct {
	Name     string   `yaml:"name"`
	Sections []string `yaml:"sections"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type seedSummary struct {
	ProjectsCreated int `json:"projects_created"`
	SectionsCreated int `json:"sections_created"`
	UsersCreated    int `json:"users_created"`
	Skipped         int `json:"skipped"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed projects, sections and users from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}
			var seed seedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return fmt.Errorf("parse %s: %w", inputPath, err)
			}

			return withStore(cfg, func(st *store.Store) error {
				summary, err := applySeed(cmd.Context(), st, seed)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(summary)
				}
				return writePlain("seeded %d project(s), %d section(s), %d user(s); %d skipped\n",
					summary.ProjectsCreated, summary.SectionsCreated, summary.UsersCreated, summary.Skipped)
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to the seed YAML file")
	return cmd
}

// applySeed inserts missing rows and leaves existing ones untouched, so
// re-running the same file is safe.
func applySeed(ctx context.Context, st *store.Store, seed seedFile) (seedSummary, error) {
	summary := seedSummary{}

	for _, sp := range seed.Projects {
		name := strings.TrimSpace(sp.Name)
		if name == "" {
			return summary, fmt.Errorf("project name is required")
		}

		project, err := st.GetProjectByName(ctx, name)
		if err != nil {
			return summary, err
		}
		if project == nil {
			project = &models.Project{Name: name}
			if err := st.CreateProject(ctx, project); err != nil {
				return summary, err
			}
			summary.ProjectsCreated++
		} else {
			summary.Skipped++
		}

		for _, code := range sp.Sections {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			existing, err := st.GetSectionByCode(ctx, project.ID, code)
			if err != nil {
				return summary, err
			}
			if existing != nil {
				summary.Skipped++
				continue
			}
			if err := st.CreateSection(ctx, &models.Section{ProjectID: project.ID, Code: code}); err != nil {
				return summary, err
			}
			summary.SectionsCreated++
		}
	}

	for _, su := range seed.Users {
		username, err := auth.NormalizeUsername(su.Username)
		if err != nil {
			return summary, err
		}
		role, err := models.ParseUserRole(su.Role)
		if err != nil {
			return summary, fmt.Errorf("user %s: %w", username, err)
		}

		existing, err := st.GetUserByUsername(ctx, username)
		if err != nil {
			return summary, err
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		if err := auth.ValidatePassword(su.Password); err != nil {
			return summary, fmt.Errorf("user %s: %w", username, err)
		}
		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return summary, err
		}

		name := strings.TrimSpace(su.Name)
		if name == "" {
			name = username
		}
		if err := st.CreateUser(ctx, &models.User{
			Username:     username,
			Name:         name,
			Role:         string(role),
			PasswordHash: hash,
			IsActive:     true,
		}); err != nil {
			return summary, err
		}
		summary.UsersCreated++
	}

	return summary, nil
}
