package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ddv-scanner/internal/config"
	"github.com/example/ddv-scanner/internal/domain/availability"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "ddvscan dev (commit=none, built=unknown)\n", run(t, "version"))
}

func TestKeys(t *testing.T) {
	out := run(t, "keys")
	assert.True(t, strings.HasPrefix(out, "export DDV_COOKIE_SECRET="))
}

func TestMonths(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(run(t, "months")), "\n")
	assert.GreaterOrEqual(t, len(lines), 4)
	assert.LessOrEqual(t, len(lines), 5)
}

func testApp() *app {
	return &app{cfg: config.Config{
		EventCode:          "GA",
		PerformanceID:      "720553",
		PerformanceAK:      "LVR.EVN21.PRF116669",
		PriceTableID:       "1",
		Weekdays:           "0,2,4,6",
		Concurrency:        10,
		RetryWindowSeconds: 120,
	}}
}

func TestScanRequestFromConfig(t *testing.T) {
	var f scanFlags
	cmd := scanCmd(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--month", "3", "--year", "2030"}))

	req, err := f.request(cmd, testApp())
	require.NoError(t, err)
	assert.Equal(t, time.March, req.Month)
	assert.Equal(t, 2030, req.Year)
	assert.Equal(t, 10, req.Concurrency)
	assert.Equal(t, 2*time.Minute, req.RetryWindow)
	assert.Equal(t, "mon,wed,fri,sun", req.Weekdays.String())
	assert.Equal(t, "GA", req.Product.EventCode)
}

func TestScanRequestFlagsWin(t *testing.T) {
	var f scanFlags
	cmd := scanCmd(&f)
	require.NoError(t, cmd.ParseFlags([]string{
		"--month", "5", "--weekdays", "sat", "--concurrency", "3",
		"--retry-window", "30s", "--event-code", "XX",
	}))
	assert.Equal(t, availability.NewWeekdaySet(availability.Saturday), f.weekdays)

	req, err := f.request(cmd, testApp())
	require.NoError(t, err)
	assert.Equal(t, time.May, req.Month)
	assert.Equal(t, "sat", req.Weekdays.String())
	assert.Equal(t, 3, req.Concurrency)
	assert.Equal(t, 30*time.Second, req.RetryWindow)
	assert.Equal(t, "XX", req.Product.EventCode)
	assert.Equal(t, "720553", req.Product.PerformanceID)
}

func TestScanRequestInvalid(t *testing.T) {
	var f scanFlags
	cmd := scanCmd(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--concurrency", "500"}))
	_, err := f.request(cmd, testApp())
	assert.Error(t, err)
}
