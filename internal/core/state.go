package core

// Phase is where a handle sits in the build/execute cycle.
type Phase int

const (
	// PhaseIdle: nothing accumulated since the last statement.
	PhaseIdle Phase = iota
	// PhaseBuilding: fluent calls have accumulated clauses.
	PhaseBuilding
	// PhasePending: Prepare stored a statement for Exec or Fetch.
	PhasePending
	// PhaseExecuting: a statement is in flight.
	PhaseExecuting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuilding:
		return "building"
	case PhasePending:
		return "pending"
	case PhaseExecuting:
		return "executing"
	}
	return "unknown"
}

// builderState is the clause data for the statement being assembled.
// Empty strings mean the clause is absent.
type builderState struct {
	selectList string
	from       string
	joins      string
	where      string
	grouped    bool
	groupBy    string
	having     string
	orderBy    string
	limit      string
	offset     string
}

func newBuilderState() builderState {
	return builderState{selectList: "*"}
}

// reset clears everything a statement leaves behind. The cache scope,
// queryCount and lastInsertID are kept.
func (db *DB) reset() {
	if db.txDepth > 0 {
		db.logger.Debug("transaction depth cleared by statement reset", "depth", db.txDepth)
	}
	db.state = newBuilderState()
	db.query = ""
	db.rowCount = 0
	db.lastError = nil
	db.txDepth = 0
	db.rejected = nil
	db.phase = PhaseIdle
}

// touch marks the handle as accumulating clauses.
func (db *DB) touch() *DB {
	if db.phase == PhaseIdle || db.phase == PhasePending {
		db.phase = PhaseBuilding
	}
	return db
}
