package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/service"
	"scrumboard/internal/storage/sqlite"
)

const fixtureYAML = `
people:
  - username: admin
    admin: true
  - username: owner
  - username: master
  - username: dev
projects:
  - title: Webshop
    product_owner: owner
    scrum_master: master
    developers: [dev]
    stories:
      - title: Checkout
        description: pay for the cart
        tests: card is charged
        priority: 4
        business_value: 8
        points: 5
      - title: Wishlist
        description: remember items
        tests: item stays listed
        priority: 2
        business_value: 3
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	assert.Len(t, f.People, 4)
	require.Len(t, f.Projects, 1)
	assert.Len(t, f.Projects[0].Stories, 2)
	require.NotNil(t, f.Projects[0].Stories[0].Points)
	assert.Nil(t, f.Projects[0].Stories[1].Points)

	_, err = ParseFixture(strings.NewReader("people:\n  - username: plain\n"))
	assert.Error(t, err)

	_, err = ParseFixture(strings.NewReader("people:\n  - username: admin\n    admin: true\n    shoe_size: 44\n"))
	assert.Error(t, err)
}

func TestFixtureApply(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	board := service.New(store)

	f, err := ParseFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	require.NoError(t, f.Apply(ctx, board))

	projects, err := board.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].Members, 3)

	stories, err := board.ListStories(ctx, projects[0].ID)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	assert.Error(t, f.Apply(ctx, board), "a seeded board is not empty")
}

func TestReconcileCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"reconcile", "--db-path", dbPath})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "0 sprint(s) updated\n", out.String())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"burndown", "42", "--db-path", dbPath})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"burndown", "nope", "--db-path", dbPath})
	assert.Error(t, cmd.Execute())
}
