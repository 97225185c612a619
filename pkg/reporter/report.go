package reporter

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"

	"github.com/routeguard-io/routeguard/internal/core/domain"
	"github.com/routeguard-io/routeguard/pkg/logger"
)

const defaultFile = "/tmp/routeguard.out"

// Reporter persists leak alerts as JSON lines and renders a summary
// table at the end of a run. The log stream repeats alerts every cycle;
// the report file keeps one line per distinct (destination, interface)
// pair so the artifact stays bounded.
type Reporter struct {
	events         []domain.ReportEvent
	eventsHashMap  map[string]bool
	Err            error
	outputFileName string
	file           *os.File
	tunnelIface    string
}

// NewReporter returns a new reporter writing to outputFileName.
func NewReporter(outputFileName, tunnelIface string) *Reporter {
	if outputFileName == "" {
		outputFileName = defaultFile
		logger.Log.Debugf("using the default output file: %s", outputFileName)
	}

	var report = &Reporter{
		eventsHashMap:  make(map[string]bool),
		outputFileName: outputFileName,
		tunnelIface:    tunnelIface,
	}

	file, err := report.openReportFile()
	if err != nil {
		report.Err = fmt.Errorf("failed to open report file: %w", err)
		return report
	}

	report.file = file

	return report
}

// LoadAndPrint renders the summary table from a previous run's file.
// An empty path means the default file.
func LoadAndPrint(path string) error {
	if path == "" {
		path = defaultFile
	}

	f, err := os.OpenFile(path, os.O_RDONLY, os.ModePerm)
	if err != nil {
		return err
	}
	defer f.Close()

	r := Reporter{outputFileName: path}

	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		event := domain.ReportEvent{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return err
		}
		r.events = append(r.events, event)
	}

	r.PrintReportTable()
	return nil
}

// LeakDetected records one suspicious route; the supervisor calls this
// every cycle the leak persists.
func (r *Reporter) LeakDetected(route domain.LeakRoute) {
	r.WriteEvent(domain.ReportEvent{
		DetectedAt:      time.Now().Format(time.RFC3339),
		Destination:     route.Destination.String(),
		OutInterface:    route.OutInterface,
		Gateway:         route.Gateway,
		TunnelInterface: r.tunnelIface,
	})
}

// WriteEvent adds an event to the report file, once per distinct leak.
func (r *Reporter) WriteEvent(event domain.ReportEvent) {
	var key = event.Destination + "%" + event.OutInterface
	var h = hash(key)

	if _, ok := r.eventsHashMap[h]; ok {
		logger.Log.Debugf("leak [%s via %s] already recorded", event.Destination, event.OutInterface)
		return
	}

	r.events = append(r.events, event)
	r.eventsHashMap[h] = true

	if r.file == nil {
		return
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("failed to marshal report event: %v", err)
		return
	}

	if _, err := r.file.WriteString(string(eventData) + "\n"); err != nil {
		logger.Log.Errorf("failed to write an event to file %s: %v", r.file.Name(), err)
	}
}

// Events returns the distinct leaks recorded so far.
func (r *Reporter) Events() []domain.ReportEvent {
	return r.events
}

// Close closes the report file.
func (r *Reporter) Close() {
	if r.file == nil {
		return
	}
	if err := r.file.Close(); err != nil {
		logger.Log.Errorf("failed to close report file: %v", err)
	}
}

func (r *Reporter) openReportFile() (*os.File, error) {
	file, err := os.OpenFile(r.outputFileName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(r.outputFileName), os.ModePerm); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}

		file, err = os.Create(r.outputFileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
	}

	return file, nil
}

// PrintReportTable renders the recorded leaks.
func (r *Reporter) PrintReportTable() {
	if len(r.events) == 0 {
		pterm.Success.Println("no suspicious routes detected")
		return
	}

	fmt.Print("\n\n")
	data := pterm.TableData{
		{"Detected At", "Destination", "Via Device", "Gateway", "Tunnel"},
	}

	for _, v := range r.events {
		data = append(data, []string{
			v.DetectedAt,
			v.Destination,
			v.OutInterface,
			v.Gateway,
			v.TunnelInterface,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithHeaderRowSeparator("-").WithData(data).Render()
}

func hash(text string) string {
	hasher := md5.New()
	hasher.Write([]byte(text))

	return hex.EncodeToString(hasher.Sum(nil))
}
