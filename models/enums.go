package models

type SessionStatus string

const (
	SessionStatusDraft      SessionStatus = "draft"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusSubmitted  SessionStatus = "submitted"
	SessionStatusReconciled SessionStatus = "reconciled"
	SessionStatusClosed     SessionStatus = "closed"
)

// ordering of the session lifecycle; transitions must be strictly forward
var sessionStatusRank = map[SessionStatus]int{
	SessionStatusDraft:      0,
	SessionStatusInProgress: 1,
	SessionStatusSubmitted:  2,
	SessionStatusReconciled: 3,
	SessionStatusClosed:     4,
}

func (s SessionStatus) IsValid() bool {
	_, ok := sessionStatusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// Session status is monotonic: no backward transitions, no self transitions.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	from, ok := sessionStatusRank[s]
	if !ok {
		return false
	}
	to, ok := sessionStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type PassStatus string

const (
	PassStatusInProgress PassStatus = "in_progress"
	PassStatusSubmitted  PassStatus = "submitted"
	PassStatusVoided     PassStatus = "voided"
)

func (s PassStatus) IsValid() bool {
	switch s {
	case PassStatusInProgress, PassStatusSubmitted, PassStatusVoided:
		return true
	}
	return false
}

// Submitted and voided are both terminal: a finalized pass is immutable.
func (s PassStatus) IsTerminal() bool {
	return s == PassStatusSubmitted || s == PassStatusVoided
}

type LineConfidence string

const (
	LineConfidenceScanned   LineConfidence = "scanned"
	LineConfidenceTyped     LineConfidence = "typed"
	LineConfidenceCorrected LineConfidence = "corrected"
)

func (c LineConfidence) IsValid() bool {
	switch c {
	case LineConfidenceScanned, LineConfidenceTyped, LineConfidenceCorrected:
		return true
	}
	return false
}

type ScanMode string

const (
	ScanModeScanner ScanMode = "scanner"
	ScanModeCamera  ScanMode = "camera"
	ScanModeManual  ScanMode = "manual"
)

func (m ScanMode) IsValid() bool {
	switch m {
	case ScanModeScanner, ScanModeCamera, ScanModeManual:
		return true
	}
	return false
}

type SnapshotSource string

const (
	SnapshotSourceCova     SnapshotSource = "cova"
	SnapshotSourceLocalbot SnapshotSource = "localbot"
	SnapshotSourceManual   SnapshotSource = "manual"
)

type MovementType string

const (
	MovementTypeSale        MovementType = "sale"
	MovementTypeRefund      MovementType = "refund"
	MovementTypeTransferIn  MovementType = "transfer_in"
	MovementTypeTransferOut MovementType = "transfer_out"
	MovementTypeAdjustment  MovementType = "adjustment"
	MovementTypeShrinkage   MovementType = "shrinkage"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeSale, MovementTypeRefund, MovementTypeTransferIn,
		MovementTypeTransferOut, MovementTypeAdjustment, MovementTypeShrinkage:
		return true
	}
	return false
}

type MovementSource string

const (
	MovementSourceCova   MovementSource = "cova"
	MovementSourceManual MovementSource = "manual"
	MovementSourceImport MovementSource = "import"
)

func (s MovementSource) IsValid() bool {
	switch s {
	case MovementSourceCova, MovementSourceManual, MovementSourceImport:
		return true
	}
	return false
}
