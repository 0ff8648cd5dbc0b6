package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// brokerView is what the shell reported about the broker in one health response.
type brokerView struct {
	Serving   healthpb.HealthCheckResponse_ServingStatus
	State     string
	PID       string
	Attempt   string
	Attempts  string
	ExitCode  string
	Path      string
	LastError string
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// newBrokerView combines the serving verdict with the status headers. A plain
// health server sends no headers, so the state then falls back to the verdict.
func newBrokerView(serving healthpb.HealthCheckResponse_ServingStatus, md metadata.MD) brokerView {
	v := brokerView{
		Serving:   serving,
		State:     first(md, lib.MetadataState),
		PID:       first(md, lib.MetadataPID),
		Attempt:   first(md, lib.MetadataAttempt),
		Attempts:  first(md, lib.MetadataAttempts),
		ExitCode:  first(md, lib.MetadataExitCode),
		Path:      first(md, lib.MetadataPath),
		LastError: first(md, lib.MetadataLastError),
	}
	if v.State == "" {
		if serving == healthpb.HealthCheckResponse_SERVING {
			v.State = lib.BrokerStateRunning.String()
		} else {
			v.State = lib.BrokerStateStopped.String()
		}
	}
	return v
}

func renderStatusTable(v brokerView) string {
	rows := [][]string{
		{"State", v.State},
		{"Health", v.Serving.String()},
		{"PID", v.PID},
		{"Attempt", v.Attempt},
		{"Attempts", v.Attempts},
		{"Exit code", v.ExitCode},
		{"Path", v.Path},
		{"Last error", v.LastError},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

// statusJSON renders the view as a protobuf Struct so the output follows the
// protojson conventions of the rest of the API.
func statusJSON(v brokerView) ([]byte, error) {
	fields := map[string]any{
		"state":   v.State,
		"serving": v.Serving.String(),
	}
	if pid, err := strconv.Atoi(v.PID); err == nil {
		fields["pid"] = pid
	}
	if attempts, err := strconv.Atoi(v.Attempts); err == nil {
		fields["attempts"] = attempts
	}
	if code, err := strconv.Atoi(v.ExitCode); err == nil {
		fields["exitCode"] = code
	}
	for key, value := range map[string]string{"attempt": v.Attempt, "path": v.Path, "lastError": v.LastError} {
		if value != "" {
			fields[key] = value
		}
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
}
