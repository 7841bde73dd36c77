package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe replays a scripted sequence of foreground observations and
// records how often the address bar is actually read.
type fakeProbe struct {
	handle  uintptr
	process string
	title   string
	url     string
	err     error
	urlErr  error

	foregroundCalls int
	urlCalls        int
}

func (p *fakeProbe) ForegroundWindow() (uintptr, string, string, error) {
	p.foregroundCalls++
	if p.err != nil {
		return 0, "", "", p.err
	}
	return p.handle, p.process, p.title, nil
}

func (p *fakeProbe) AddressBarURL(handle uintptr, title string) (string, error) {
	p.urlCalls++
	if p.urlErr != nil {
		return "", p.urlErr
	}
	return p.url, nil
}

func testSampler(probe Probe) *Sampler {
	return NewSamplerWithProbe(probe, time.Second, []string{"chrome.exe", "msedge.exe"})
}

func TestTickReportsForegroundActivity(t *testing.T) {
	probe := &fakeProbe{handle: 42, process: "code.exe", title: "main.go"}
	sampler := testSampler(probe)

	sample := sampler.tick()

	assert.Equal(t, "code.exe", sample.ProcessName)
	assert.Equal(t, "main.go", sample.WindowTitle)
	assert.Empty(t, sample.URL)
	assert.False(t, sample.Degraded)
	assert.Zero(t, probe.urlCalls, "non-browser windows must not trigger url extraction")
}

func TestTickExtractsURLForBrowserWindows(t *testing.T) {
	probe := &fakeProbe{handle: 42, process: "chrome.exe", title: "Docs", url: "https://pkg.go.dev"}
	sampler := testSampler(probe)

	sample := sampler.tick()

	assert.Equal(t, "https://pkg.go.dev", sample.URL)
	assert.Equal(t, 1, probe.urlCalls)
}

func TestURLCachedWhileWindowUnchanged(t *testing.T) {
	probe := &fakeProbe{handle: 42, process: "chrome.exe", title: "Docs", url: "https://pkg.go.dev"}
	sampler := testSampler(probe)

	for i := 0; i < 5; i++ {
		sample := sampler.tick()
		assert.Equal(t, "https://pkg.go.dev", sample.URL)
	}
	assert.Equal(t, 1, probe.urlCalls, "the same window must reuse the cached url")

	// A different foreground window forces a fresh read
	probe.handle = 43
	probe.url = "https://go.dev"
	sample := sampler.tick()
	assert.Equal(t, "https://go.dev", sample.URL)
	assert.Equal(t, 2, probe.urlCalls)
}

func TestURLCacheClearedByNonBrowserWindow(t *testing.T) {
	probe := &fakeProbe{handle: 42, process: "chrome.exe", title: "Docs", url: "https://pkg.go.dev"}
	sampler := testSampler(probe)

	sampler.tick()
	require.Equal(t, 1, probe.urlCalls)

	// Switch away to an editor, then back to the same browser window. The
	// empty cache forces re-extraction even though the handle matches.
	probe.process = "code.exe"
	sample := sampler.tick()
	assert.Empty(t, sample.URL)

	probe.process = "chrome.exe"
	sampler.tick()
	assert.Equal(t, 2, probe.urlCalls)
}

func TestFailedURLReadYieldsEmptyURL(t *testing.T) {
	probe := &fakeProbe{handle: 42, process: "msedge.exe", title: "Docs", urlErr: errors.New("no address bar")}
	sampler := testSampler(probe)

	sample := sampler.tick()

	assert.Equal(t, "msedge.exe", sample.ProcessName)
	assert.Empty(t, sample.URL)
	assert.False(t, sample.Degraded)
}

func TestProbeFailureSubstitutesUnknown(t *testing.T) {
	probe := &fakeProbe{err: errors.New("no foreground window")}
	sampler := testSampler(probe)

	sample := sampler.tick()

	assert.Equal(t, "unknown", sample.ProcessName)
	assert.Empty(t, sample.WindowTitle)
	assert.False(t, sample.Degraded, "a single failure is not degraded")
	assert.True(t, sampler.Healthy())
}

func TestSustainedProbeFailuresDegrade(t *testing.T) {
	probe := &fakeProbe{err: errors.New("no foreground window")}
	sampler := testSampler(probe)

	var sample Sample
	for i := 0; i < degradedThreshold; i++ {
		sample = sampler.tick()
	}
	assert.True(t, sample.Degraded)
	assert.False(t, sampler.Healthy())

	// One good answer restores health
	probe.err = nil
	probe.process = "code.exe"
	sample = sampler.tick()
	assert.False(t, sample.Degraded)
	assert.True(t, sampler.Healthy())
}

func TestMailboxKeepsLatestSample(t *testing.T) {
	probe := &fakeProbe{handle: 1, process: "code.exe", title: "a.go"}
	sampler := testSampler(probe)

	sampler.emit(Sample{ProcessName: "stale.exe"})
	sampler.emit(Sample{ProcessName: "fresh.exe"})

	select {
	case sample := <-sampler.Samples():
		assert.Equal(t, "fresh.exe", sample.ProcessName)
	default:
		t.Fatal("mailbox should hold the latest sample")
	}

	select {
	case sample := <-sampler.Samples():
		t.Fatalf("mailbox should be empty, got %q", sample.ProcessName)
	default:
	}
}

func TestSamplerLifecycle(t *testing.T) {
	probe := &fakeProbe{handle: 1, process: "code.exe", title: "a.go"}
	sampler := NewSamplerWithProbe(probe, 5*time.Millisecond, nil)

	require.NoError(t, sampler.Start())
	assert.Error(t, sampler.Start(), "second start must fail")

	select {
	case sample := <-sampler.Samples():
		assert.Equal(t, "code.exe", sample.ProcessName)
	case <-time.After(time.Second):
		t.Fatal("no sample produced")
	}

	sampler.Stop()
	sampler.Stop()
	assert.Positive(t, probe.foregroundCalls)
}
