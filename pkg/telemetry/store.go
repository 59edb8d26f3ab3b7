package telemetry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed durable record of every CallTelemetry event,
// used for routing scoreboards and regression detection once the call
// exceeds the lifetime of the in-memory Scoreboard.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if absent) the SQLite database at path with
// WAL mode enabled, and ensures the schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("telemetry: open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS call_telemetry (
			id                 TEXT PRIMARY KEY,
			trace_id           TEXT NOT NULL,
			request_id         TEXT,
			session_id         TEXT,
			session_key        TEXT,
			model_id           TEXT NOT NULL,
			provider           TEXT NOT NULL,
			role               TEXT NOT NULL,
			started_at         INTEGER NOT NULL,
			completed_at       INTEGER,
			has_completed_at   INTEGER NOT NULL DEFAULT 0,
			latency_ms         INTEGER NOT NULL DEFAULT 0,
			prompt_tokens      INTEGER NOT NULL DEFAULT 0,
			completion_tokens  INTEGER NOT NULL DEFAULT 0,
			cache_read_tokens  INTEGER NOT NULL DEFAULT 0,
			cache_write_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens       INTEGER NOT NULL DEFAULT 0,
			retry_count        INTEGER NOT NULL DEFAULT 0,
			escalation_codes   TEXT,
			artifact_bytes     INTEGER NOT NULL DEFAULT 0,
			status             TEXT NOT NULL,
			error_kind         TEXT,
			error_message      TEXT,
			local_memory_pressure TEXT,
			stop_reason        TEXT,
			is_subagent        INTEGER NOT NULL DEFAULT 0,
			subagent_label     TEXT,
			lane               TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_call_telemetry_trace ON call_telemetry(trace_id);
		CREATE INDEX IF NOT EXISTS idx_call_telemetry_model_role_started ON call_telemetry(model_id, role, started_at);
		CREATE INDEX IF NOT EXISTS idx_call_telemetry_started ON call_telemetry(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StoreTelemetry inserts or replaces one call record.
func (s *Store) StoreTelemetry(rec CallTelemetry) error {
	codes, err := json.Marshal(rec.EscalationCodes)
	if err != nil {
		return fmt.Errorf("telemetry: marshal escalation codes: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO call_telemetry (
			id, trace_id, request_id, session_id, session_key, model_id, provider, role,
			started_at, completed_at, has_completed_at, latency_ms,
			prompt_tokens, completion_tokens, cache_read_tokens, cache_write_tokens, total_tokens,
			retry_count, escalation_codes, artifact_bytes, status, error_kind, error_message,
			local_memory_pressure, stop_reason, is_subagent, subagent_label, lane
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.TraceID, rec.RequestID, rec.SessionID, rec.SessionKey, rec.ModelID, rec.Provider, string(rec.Role),
		rec.StartedAt, rec.CompletedAt, boolToInt(rec.HasCompletedAt), rec.LatencyMs,
		rec.PromptTokens, rec.CompletionTokens, rec.CacheReadTokens, rec.CacheWriteTokens, rec.TotalTokens,
		rec.RetryCount, string(codes), rec.ArtifactBytes, string(rec.Status), rec.ErrorKind, rec.ErrorMessage,
		string(rec.LocalMemoryPressure), rec.StopReason, boolToInt(rec.IsSubagent), rec.SubagentLabel, rec.Lane,
	)
	if err != nil {
		return fmt.Errorf("telemetry: insert: %w", err)
	}
	return nil
}

// Filter narrows QueryTelemetry. Zero-value fields are unconstrained.
type Filter struct {
	TraceID   string
	ModelID   string
	Provider  string
	Role      Role
	Status    Status
	StartTime int64
	EndTime   int64
	Limit     int
}

// QueryTelemetry returns records matching filter, newest first.
func (s *Store) QueryTelemetry(f Filter) ([]CallTelemetry, error) {
	var where []string
	var args []any

	if f.TraceID != "" {
		where = append(where, "trace_id = ?")
		args = append(args, f.TraceID)
	}
	if f.ModelID != "" {
		where = append(where, "model_id = ?")
		args = append(args, f.ModelID)
	}
	if f.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.StartTime != 0 {
		where = append(where, "started_at >= ?")
		args = append(args, f.StartTime)
	}
	if f.EndTime != 0 {
		where = append(where, "started_at <= ?")
		args = append(args, f.EndTime)
	}

	query := "SELECT id, trace_id, request_id, session_id, session_key, model_id, provider, role, started_at, completed_at, has_completed_at, latency_ms, prompt_tokens, completion_tokens, cache_read_tokens, cache_write_tokens, total_tokens, retry_count, escalation_codes, artifact_bytes, status, error_kind, error_message, local_memory_pressure, stop_reason, is_subagent, subagent_label, lane FROM call_telemetry"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query: %w", err)
	}
	defer rows.Close()

	var out []CallTelemetry
	for rows.Next() {
		var rec CallTelemetry
		var role, status, pressure string
		var completedAt sql.NullInt64
		var hasCompletedAt, isSubagent int
		var codesJSON sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.TraceID, &rec.RequestID, &rec.SessionID, &rec.SessionKey, &rec.ModelID, &rec.Provider, &role,
			&rec.StartedAt, &completedAt, &hasCompletedAt, &rec.LatencyMs,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.CacheReadTokens, &rec.CacheWriteTokens, &rec.TotalTokens,
			&rec.RetryCount, &codesJSON, &rec.ArtifactBytes, &status, &rec.ErrorKind, &rec.ErrorMessage,
			&pressure, &rec.StopReason, &isSubagent, &rec.SubagentLabel, &rec.Lane,
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: scan: %w", err)
		}

		rec.Role = Role(role)
		rec.Status = Status(status)
		rec.LocalMemoryPressure = MemoryPressure(pressure)
		rec.HasCompletedAt = hasCompletedAt != 0
		rec.IsSubagent = isSubagent != 0
		if completedAt.Valid {
			rec.CompletedAt = completedAt.Int64
		}
		if codesJSON.Valid && codesJSON.String != "" {
			_ = json.Unmarshal([]byte(codesJSON.String), &rec.EscalationCodes)
		}

		out = append(out, rec)
	}
	return out, rows.Err()
}

// CleanupOldTelemetry deletes records older than retentionDays, returning
// the number of rows removed.
func (s *Store) CleanupOldTelemetry(nowMs int64, retentionDays int) (int64, error) {
	cutoff := nowMs - int64(retentionDays)*24*60*60*1000
	result, err := s.db.Exec("DELETE FROM call_telemetry WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("telemetry: cleanup: %w", err)
	}
	return result.RowsAffected()
}

// RoutingScoreboardRow is one (modelId, role) aggregate over a lookback
// window.
type RoutingScoreboardRow struct {
	ModelID             string
	Role                Role
	CallCount           int64
	FailureCount        int64
	FailureRate         float64
	P50LatencyMs        float64
	P95LatencyMs        float64
	P99LatencyMs        float64
	AvgPromptTokens     float64
	AvgCompletionTokens float64
}

// BuildRoutingScoreboard aggregates records from the last lookbackHours,
// grouped by (modelId, role).
func (s *Store) BuildRoutingScoreboard(nowMs int64, lookbackHours int) ([]RoutingScoreboardRow, error) {
	since := nowMs - int64(lookbackHours)*60*60*1000
	records, err := s.QueryTelemetry(Filter{StartTime: since})
	if err != nil {
		return nil, err
	}

	type group struct {
		modelID   string
		role      Role
		latencies []int64
		failures  int64
		promptSum int64
		compSum   int64
	}
	groups := map[string]*group{}
	var order []string

	for _, r := range records {
		key := string(r.Role) + "::" + r.ModelID
		g, ok := groups[key]
		if !ok {
			g = &group{modelID: r.ModelID, role: r.Role}
			groups[key] = g
			order = append(order, key)
		}
		g.latencies = append(g.latencies, r.LatencyMs)
		g.promptSum += r.PromptTokens
		g.compSum += r.CompletionTokens
		if r.Status != StatusSuccess {
			g.failures++
		}
	}

	sort.Strings(order)

	rows := make([]RoutingScoreboardRow, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		n := int64(len(g.latencies))
		sorted := append([]int64(nil), g.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		rows = append(rows, RoutingScoreboardRow{
			ModelID:             g.modelID,
			Role:                g.role,
			CallCount:           n,
			FailureCount:        g.failures,
			FailureRate:         ratio(g.failures, n),
			P50LatencyMs:        percentileOf(sorted, 50),
			P95LatencyMs:        percentileOf(sorted, 95),
			P99LatencyMs:        percentileOf(sorted, 99),
			AvgPromptTokens:     ratio(g.promptSum, n),
			AvgCompletionTokens: ratio(g.compSum, n),
		})
	}
	return rows, nil
}

// percentileIndex implements ceil(p/100 * n) - 1 clamped to [0, n-1].
func percentileIndex(p float64, n int) int {
	if n <= 0 {
		return -1
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

// percentileOf returns the p-th percentile of a pre-sorted ascending
// slice of int64 latencies, or 0 if empty.
func percentileOf(sortedLatencies []int64, p float64) float64 {
	idx := percentileIndex(p, len(sortedLatencies))
	if idx < 0 {
		return 0
	}
	return float64(sortedLatencies[idx])
}

// RegressionThresholds configures DetectRegressions. LatencyP95Ms is an
// absolute-ms delta threshold; FailureRatePercent is in percentage points.
type RegressionThresholds struct {
	LatencyP95Ms       float64
	FailureRatePercent float64
}

// Regression is one (modelId, role) pair whose current-window behavior has
// degraded past threshold relative to its baseline window.
type Regression struct {
	ModelID          string
	Role             Role
	BaselineP95Ms    float64
	CurrentP95Ms     float64
	LatencyChangeMs  float64
	BaselineFailRate float64
	CurrentFailRate  float64
	FailRateChangePP float64
	Severity         string
}

const minBaselineSamples = 10

// DetectRegressions compares a current window against an older baseline
// window per (modelId, role), flagging pairs whose p95 latency or failure
// rate has degraded beyond thresholds. Pairs with fewer than 10 baseline
// samples are excluded as statistically unreliable. Severity is
// "critical" when the change exceeds 2x the threshold, else "warning".
// Results are sorted by change (the triggering metric's delta) descending.
func (s *Store) DetectRegressions(nowMs int64, baselineHours, currentHours int, thresholds RegressionThresholds) ([]Regression, error) {
	baselineSince := nowMs - int64(baselineHours)*60*60*1000
	baselineUntil := nowMs - int64(currentHours)*60*60*1000
	currentSince := baselineUntil

	baseline, err := s.QueryTelemetry(Filter{StartTime: baselineSince, EndTime: baselineUntil})
	if err != nil {
		return nil, err
	}
	current, err := s.QueryTelemetry(Filter{StartTime: currentSince})
	if err != nil {
		return nil, err
	}

	baseGroups := groupByModelRole(baseline)
	curGroups := groupByModelRole(current)

	var out []Regression
	for key, cg := range curGroups {
		bg, ok := baseGroups[key]
		if !ok || int64(len(bg.latencies)) < minBaselineSamples {
			continue
		}

		baseSorted := sortedCopy(bg.latencies)
		curSorted := sortedCopy(cg.latencies)

		baseP95 := percentileOf(baseSorted, 95)
		curP95 := percentileOf(curSorted, 95)
		latencyChange := curP95 - baseP95

		baseFailRate := ratio(bg.failures, int64(len(bg.latencies))) * 100
		curFailRate := ratio(cg.failures, int64(len(cg.latencies))) * 100
		failRateChange := curFailRate - baseFailRate

		latencyBreach := latencyChange > thresholds.LatencyP95Ms
		failBreach := failRateChange > thresholds.FailureRatePercent
		if !latencyBreach && !failBreach {
			continue
		}

		change := latencyChange
		threshold := thresholds.LatencyP95Ms
		if failBreach && (!latencyBreach || failRateChange > latencyChange) {
			change = failRateChange
			threshold = thresholds.FailureRatePercent
		}

		severity := "warning"
		if threshold > 0 && change > 2*threshold {
			severity = "critical"
		}

		out = append(out, Regression{
			ModelID:          cg.modelID,
			Role:             cg.role,
			BaselineP95Ms:    baseP95,
			CurrentP95Ms:     curP95,
			LatencyChangeMs:  latencyChange,
			BaselineFailRate: baseFailRate,
			CurrentFailRate:  curFailRate,
			FailRateChangePP: failRateChange,
			Severity:         severity,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return regressionChange(out[i]) > regressionChange(out[j])
	})
	return out, nil
}

func regressionChange(r Regression) float64 {
	if r.FailRateChangePP > r.LatencyChangeMs {
		return r.FailRateChangePP
	}
	return r.LatencyChangeMs
}

type rawGroup struct {
	modelID   string
	role      Role
	latencies []int64
	failures  int64
}

func groupByModelRole(records []CallTelemetry) map[string]*rawGroup {
	groups := map[string]*rawGroup{}
	for _, r := range records {
		key := string(r.Role) + "::" + r.ModelID
		g, ok := groups[key]
		if !ok {
			g = &rawGroup{modelID: r.ModelID, role: r.Role}
			groups[key] = g
		}
		g.latencies = append(g.latencies, r.LatencyMs)
		if r.Status != StatusSuccess {
			g.failures++
		}
	}
	return groups
}

func sortedCopy(in []int64) []int64 {
	out := append([]int64(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
