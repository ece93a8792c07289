package cli_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/tabledb/internal/cli"
)

func Test_Print_Config_Defaults_When_No_Config_Files(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "db="+c.DBPath())
	cli.AssertContains(t, stdout, "friendly_errors=false")
	cli.AssertContains(t, stdout, "log_level=error")
	cli.AssertContains(t, stdout, "log_format=text")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_Reads_Project_File_With_Comments_When_Present(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".tabledb.json", `{
		// project database
		"db": "data/app.json",
		"friendly_errors": true,
	}`)

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "db="+filepath.Join(c.Dir, "data", "app.json"))
	cli.AssertContains(t, stdout, "friendly_errors=true")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".tabledb.json"))
}

func Test_Print_Config_Layers_Project_Over_Global_When_Both_Exist(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("xdg/tabledb/config.json", `{"db": "global.json", "log_level": "debug"}`)
	c.WriteFile(".tabledb.json", `{"db": "project.json"}`)

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "db="+filepath.Join(c.Dir, "project.json"))
	cli.AssertContains(t, stdout, "log_level=debug")
	cli.AssertContains(t, stdout, "global_config="+filepath.Join(c.Dir, "xdg", "tabledb", "config.json"))
}

func Test_Print_Config_Uses_Explicit_Config_Instead_Of_Project_When_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".tabledb.json", `{"db": "project.json"}`)
	c.WriteFile("custom.json", `{"db": "custom.json.db"}`)

	stdout := c.MustRun("--config=custom.json", "print-config")
	cli.AssertContains(t, stdout, "db="+filepath.Join(c.Dir, "custom.json.db"))
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, "custom.json"))
}

func Test_Print_Config_Flags_Override_Files_When_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".tabledb.json", `{"db": "project.json", "friendly_errors": true, "log_format": "json"}`)

	stdout := c.MustRun("--db", "/tmp/abs.json", "--friendly=false", "--log-format", "text", "print-config")
	cli.AssertContains(t, stdout, "db=/tmp/abs.json")
	cli.AssertContains(t, stdout, "friendly_errors=false")
	cli.AssertContains(t, stdout, "log_format=text")
}

func Test_Run_Fails_When_Explicit_Config_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c", "nope.json", "print-config")
	cli.AssertContains(t, stderr, "config file not found")
}

func Test_Run_Fails_When_Config_Is_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty db", content: `{"db": ""}`, want: "db path cannot be empty"},
		{name: "bad json", content: `{"db": `, want: "invalid config"},
		{name: "bad log level", content: `{"log_level": "loud"}`, want: "invalid log level"},
		{name: "bad log format", content: `{"log_format": "xml"}`, want: "invalid log format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := cli.NewCLI(t)
			c.WriteFile(".tabledb.json", tc.content)

			stderr := c.MustFail("print-config")
			cli.AssertContains(t, stderr, tc.want)
		})
	}
}

func Test_LoadConfig_Resolves_Relative_DB_Against_Work_Dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := cli.LoadConfig(cli.LoadConfigInput{
		WorkDirOverride: dir,
		DBOverride:      "sub/x.json",
		Env:             map[string]string{},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sub", "x.json"), cfg.DBAbs)
	assert.Equal(t, dir, cfg.EffectiveCwd)
	assert.Empty(t, cfg.Sources.Global)
	assert.Empty(t, cfg.Sources.Project)
}
