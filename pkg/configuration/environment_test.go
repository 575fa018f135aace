package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "GMS_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "proposals")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("GMS_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("GMS_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("GMS_TEST_ENV_LOAD"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n")

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	n, err := LoadEnv([]string{".env"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRateLimitOptions_Validate(t *testing.T) {
	cases := []struct {
		name    string
		opts    RateLimitOptions
		wantErr bool
	}{
		{name: "memory", opts: RateLimitOptions{GlobalRPS: 10, Storage: "memory"}},
		{name: "redis without url", opts: RateLimitOptions{GlobalRPS: 10, Storage: "redis"}, wantErr: true},
		{name: "redis", opts: RateLimitOptions{GlobalRPS: 10, Storage: "redis", RedisURL: "redis://localhost:6379"}},
		{name: "negative", opts: RateLimitOptions{GlobalRPS: -1, Storage: "memory"}, wantErr: true},
		{name: "unknown storage", opts: RateLimitOptions{GlobalRPS: 1, Storage: "disk"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfiguration_LogrusLogLevel(t *testing.T) {
	c := &Configuration{}
	c.Log.Level = "debug"
	require.Equal(t, logrus.DebugLevel, c.LogrusLogLevel())
	c.Log.Level = "nonsense"
	require.Equal(t, logrus.ErrorLevel, c.LogrusLogLevel())
}

func TestConfiguration_AllowedOrigins(t *testing.T) {
	c := &Configuration{CorsOrigins: " http://a.test, ,http://b.test "}
	require.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins())
}

func TestReportOptions_LocationFallsBackToUTC(t *testing.T) {
	r := ReportOptions{Timezone: "Not/AZone"}
	require.Equal(t, "UTC", r.Location().String())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
