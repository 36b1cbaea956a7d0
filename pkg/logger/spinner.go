package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a waiting indicator for a long-running remote call.
type Spinner struct {
	mu       sync.Mutex
	active   bool
	message  string
	stopChan chan struct{}
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		stopChan: make(chan struct{}),
	}
}

// Start begins the animation on its own goroutine.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go func() {
		for i := 0; ; i++ {
			select {
			case <-s.stopChan:
				fmt.Printf("\r%s\r", strings.Repeat(" ", len(s.message)+10))
				return
			default:
				frame := spinnerFrames[i%len(spinnerFrames)]
				if defaultLogger.noColor {
					fmt.Printf("\r%s %s", frame, s.message)
				} else {
					fmt.Printf("\r%s%s%s %s", colorCyan, frame, colorReset, s.message)
				}
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	close(s.stopChan)
	// Let the goroutine clear the line before the next print.
	time.Sleep(50 * time.Millisecond)
}

// WithSpinner runs fn behind a spinner and reports its outcome.
func WithSpinner(message string, fn func() error) error {
	spinner := NewSpinner(message)
	spinner.Start()

	err := fn()
	spinner.Stop()
	if err != nil {
		Error(fmt.Sprintf("%s failed: %v", message, err))
	} else {
		Success(fmt.Sprintf("%s completed", message))
	}
	return err
}

// ProgressBar tracks progress through a fixed number of steps, one cascade
// run per step in the sweep scenario.
type ProgressBar struct {
	total   int
	current int
	width   int
	message string
}

// NewProgressBar creates a progress bar over total steps.
func NewProgressBar(total int, message string) *ProgressBar {
	return &ProgressBar{total: total, width: 40, message: message}
}

// Increment advances the bar by one step.
func (p *ProgressBar) Increment() {
	p.current++
	p.draw()
}

// Finish fills the bar and terminates its line.
func (p *ProgressBar) Finish() {
	p.current = p.total
	p.draw()
	fmt.Println()
}

func (p *ProgressBar) draw() {
	percent := float64(p.current) / float64(p.total)
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	if defaultLogger.noColor {
		fmt.Printf("\r%s: [%s] %3.0f%%", p.message, bar, percent*100)
	} else {
		fmt.Printf("\r%s: %s%s%s %3.0f%%", p.message, colorGreen, bar, colorReset, percent*100)
	}
}
