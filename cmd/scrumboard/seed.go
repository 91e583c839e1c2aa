package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/service"
)

// Fixture is the layout of a seed file. People are referenced by username.
type Fixture struct {
	People   []FixturePerson  `yaml:"people"`
	Projects []FixtureProject `yaml:"projects"`
}

// FixturePerson is one user. The first entry must be an admin; it creates
// everything else.
type FixturePerson struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Lastname string `yaml:"lastname"`
	Email    string `yaml:"email"`
	Admin    bool   `yaml:"admin"`
}

// FixtureProject is a project with its team and backlog.
type FixtureProject struct {
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description"`
	ProductOwner string         `yaml:"product_owner"`
	ScrumMaster  string         `yaml:"scrum_master"`
	Developers   []string       `yaml:"developers"`
	Stories      []FixtureStory `yaml:"stories"`
}

// FixtureStory is a backlog story. Points are optional.
type FixtureStory struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	Tests         string   `yaml:"tests"`
	Priority      int      `yaml:"priority"`
	BusinessValue int      `yaml:"business_value"`
	Points        *float64 `yaml:"points"`
}

// ParseFixture decodes a seed file.
func ParseFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.People) == 0 || !f.People[0].Admin {
		return Fixture{}, fmt.Errorf("parse fixture: the first person must be an admin")
	}
	return f, nil
}

// Apply creates the fixture through the board so that every rule applies.
func (f Fixture) Apply(ctx context.Context, board *service.Manager) error {
	ids := make(map[string]int64, len(f.People))
	var admin int64
	for i, p := range f.People {
		person, err := board.CreatePerson(ctx, admin, models.Person{
			Username: p.Username,
			Name:     p.Name,
			Lastname: p.Lastname,
			Email:    p.Email,
			Admin:    p.Admin,
		})
		if err != nil {
			return fmt.Errorf("person %s: %w", p.Username, err)
		}
		if i == 0 {
			admin = person.ID
		}
		ids[p.Username] = person.ID
	}

	lookup := func(username string) (int64, error) {
		id, ok := ids[username]
		if !ok {
			return 0, fmt.Errorf("unknown person %q", username)
		}
		return id, nil
	}

	for _, fp := range f.Projects {
		team := service.Team{}
		var err error
		if team.ProductOwner, err = lookup(fp.ProductOwner); err != nil {
			return fmt.Errorf("project %s: %w", fp.Title, err)
		}
		if team.ScrumMaster, err = lookup(fp.ScrumMaster); err != nil {
			return fmt.Errorf("project %s: %w", fp.Title, err)
		}
		for _, dev := range fp.Developers {
			id, err := lookup(dev)
			if err != nil {
				return fmt.Errorf("project %s: %w", fp.Title, err)
			}
			team.Developers = append(team.Developers, id)
		}

		project, err := board.CreateProject(ctx, admin, service.ProjectInput{
			Title:       fp.Title,
			Description: fp.Description,
			Team:        team,
		})
		if err != nil {
			return fmt.Errorf("project %s: %w", fp.Title, err)
		}

		for _, fs := range fp.Stories {
			story, err := board.CreateStory(ctx, admin, project.ID, lifecycle.StoryInput{
				Title:         fs.Title,
				Description:   fs.Description,
				Tests:         fs.Tests,
				Priority:      fs.Priority,
				BusinessValue: fs.BusinessValue,
			})
			if err != nil {
				return fmt.Errorf("story %s: %w", fs.Title, err)
			}
			if fs.Points == nil {
				continue
			}
			if _, _, err := board.EstimateStory(ctx, admin, story.ID, *fs.Points); err != nil {
				return fmt.Errorf("estimate %s: %w", fs.Title, err)
			}
		}
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load people, projects and stories from a YAML fixture into an empty board.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			fixture, err := ParseFixture(file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := fixture.Apply(cmd.Context(), a.board); err != nil {
				return err
			}
			a.logger.Info("fixture loaded", "people", len(fixture.People), "projects", len(fixture.Projects))
			return nil
		},
	}
}
