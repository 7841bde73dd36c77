package tracker

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// degradedThreshold is the number of consecutive probe failures after which
// the sampler reports monitoring as degraded instead of failing silently.
const degradedThreshold = 10

// Sample is one observation of the foreground activity.
type Sample struct {
	Time        time.Time `json:"time"`
	ProcessName string    `json:"process_name"`
	WindowTitle string    `json:"window_title"`
	URL         string    `json:"url"`
	// Degraded is set when the OS probe has been failing for a sustained
	// stretch and the sample carries fallback values.
	Degraded bool `json:"degraded"`
}

// Probe answers the OS-level questions the sampler asks each tick. The
// address-bar read walks the foreground window's accessibility tree and is
// expensive; the sampler is responsible for calling it sparingly.
type Probe interface {
	// ForegroundWindow returns the foreground window handle, the lowercase
	// executable name of its owning process, and its title. Implementations
	// substitute "unknown" for the process when only the owner lookup fails.
	ForegroundWindow() (handle uintptr, process, title string, err error)
	// AddressBarURL extracts the address-bar text of a browser window, or
	// an empty string when no address bar can be found.
	AddressBarURL(handle uintptr, title string) (string, error)
}

// Sampler polls the foreground activity on a fixed tick and emits samples
// into a single-slot, latest-wins mailbox. It never blocks on the consumer.
type Sampler struct {
	mu         sync.Mutex
	probe      Probe
	browsers   map[string]bool
	interval   time.Duration
	out        chan Sample
	stopChan   chan struct{}
	doneChan   chan struct{}
	isRunning  bool
	failures   int
	lastHandle uintptr
	lastURL    string
}

// NewSampler creates a sampler over the platform probe. browserProcesses is
// the set of executable names for which url extraction is attempted.
func NewSampler(interval time.Duration, browserProcesses []string) *Sampler {
	return NewSamplerWithProbe(newPlatformProbe(), interval, browserProcesses)
}

// NewSamplerWithProbe creates a sampler with an explicit probe, used by tests.
func NewSamplerWithProbe(probe Probe, interval time.Duration, browserProcesses []string) *Sampler {
	browsers := make(map[string]bool, len(browserProcesses))
	for _, name := range browserProcesses {
		browsers[name] = true
	}

	return &Sampler{
		probe:    probe,
		browsers: browsers,
		interval: interval,
		out:      make(chan Sample, 1),
	}
}

// Samples returns the mailbox carrying the most recent observation.
func (s *Sampler) Samples() <-chan Sample {
	return s.out
}

// Start begins sampling on a background goroutine.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("sampler is already running")
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	log.Printf("Activity sampler started - tick every %v", s.interval)

	go s.loop()

	return nil
}

// Stop signals the sampling loop to stop and waits for it to exit.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()

	<-done
	log.Println("Activity sampler stopped")
}

// Healthy reports whether the OS probe has been answering recently.
func (s *Sampler) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures < degradedThreshold
}

func (s *Sampler) loop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.emit(s.tick())
		case <-s.stopChan:
			return
		}
	}
}

// tick performs one observation. Failures degrade the sample instead of
// aborting the loop; the loop runs until Stop.
func (s *Sampler) tick() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := Sample{Time: time.Now()}

	handle, process, title, err := s.probe.ForegroundWindow()
	if err != nil {
		s.failures++
		if s.failures == degradedThreshold {
			log.Printf("Activity probe failing persistently, monitoring degraded: %v", err)
		}
		sample.ProcessName = "unknown"
		sample.Degraded = s.failures >= degradedThreshold
		return sample
	}
	s.failures = 0

	sample.ProcessName = process
	sample.WindowTitle = title

	if s.browsers[process] {
		// Walking the accessibility tree is expensive, so the cached url is
		// reused until the foreground window changes or no url is known yet.
		if handle != s.lastHandle || s.lastURL == "" {
			url, err := s.probe.AddressBarURL(handle, title)
			if err != nil {
				log.Printf("Address bar read failed for %s: %v", process, err)
				url = ""
			}
			s.lastURL = url
		}
		sample.URL = s.lastURL
	} else {
		s.lastURL = ""
	}
	s.lastHandle = handle

	return sample
}

// emit places the sample in the mailbox, displacing any undelivered one.
func (s *Sampler) emit(sample Sample) {
	select {
	case s.out <- sample:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- sample:
		default:
		}
	}
}
