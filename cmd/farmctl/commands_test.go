package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdesk/internal/seeder"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSimulatePrintsOneRowPerDay(t *testing.T) {
	out, err := execute(t, "simulate", "--population", "1000", "--days", "30", "--scenario", "good")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header, 30 days, totals
	require.Len(t, lines, 32)
	assert.Contains(t, lines[0], "FCR")
	assert.Contains(t, lines[31], "final population")
}

func TestSimulateRejectsBadScenario(t *testing.T) {
	_, err := execute(t, "simulate", "--scenario", "apocalyptic")
	assert.Error(t, err)
}

func TestTokenRequiresEmail(t *testing.T) {
	_, err := execute(t, "token")
	assert.ErrorContains(t, err, "email")
}

func TestSeedFlagsDefaults(t *testing.T) {
	cmd := newRootCmd()
	seed, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)
	days, err := seed.Flags().GetInt("days")
	require.NoError(t, err)
	assert.Equal(t, seeder.DefaultDays, days)
	scenario, err := seed.Flags().GetString("scenario")
	require.NoError(t, err)
	assert.Equal(t, "normal", scenario)
}
