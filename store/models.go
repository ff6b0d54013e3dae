// Package store is the persistent record of users, contests, problems,
// languages, runs and configuration. All writes go through conditional
// updates so concurrent callers observe Conflict rather than corrupting
// shared rows.
package store

import "time"

// Role gates which endpoints a User may call. Roles are tags on the user,
// not a type hierarchy — authorization is a predicate over the set.
type Role string

const (
	RoleDefendant   Role = "defendant"
	RoleOperator    Role = "operator"
	RoleJudge       Role = "judge"
	RoleExecutioner Role = "executioner"
	RoleObserver    Role = "observer"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleDefendant, RoleOperator, RoleJudge, RoleExecutioner, RoleObserver:
		return true
	default:
		return false
	}
}

// RunState is the lifecycle state of a Run.
type RunState string

const (
	StateJudging              RunState = "JUDGING"
	StateExecuted             RunState = "EXECUTED"
	StateSuccessful           RunState = "SUCCESSFUL"
	StateFailed               RunState = "FAILED"
	StateContestHasNotBegun   RunState = "CONTEST_HAS_NOT_BEGUN"
	StateContestEnded         RunState = "CONTEST_ENDED"
	StateTimedOut             RunState = "TIMED_OUT"
	StateOutputLimitExceeded  RunState = "OUTPUT_LIMIT_EXCEEDED"
	StateNoOutput             RunState = "NO_OUTPUT"
)

// ValType is the coercion hint for a Configuration value.
type ValType string

const (
	ValInt    ValType = "integer"
	ValBool   ValType = "bool"
	ValString ValType = "string"
	ValJSON   ValType = "json"
)

type Language struct {
	ID              int64
	Name            string
	IsEnabled       bool
	RunScript       string
	SyntaxMode      string
	DefaultTemplate *string
}

type ProblemType struct {
	ID         int64
	Name       string
	EvalScript string
}

type Problem struct {
	ID              int64
	ProblemTypeID   int64
	Slug            string
	Name            string
	ProblemStatement string
	SampleInput     string
	SampleOutput    string
	SecretInput     string
	SecretOutput    string
	IsEnabled       bool
}

type User struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
	CreationTime time.Time
	MiscData     []byte // opaque JSON
	Roles        []Role
}

func (u User) HasRole(r Role) bool {
	for _, x := range u.Roles {
		if x == r {
			return true
		}
	}
	return false
}

type Contest struct {
	ID             int64
	Name           string
	ActivateTime   *time.Time
	StartTime      time.Time
	FreezeTime     *time.Time
	EndTime        time.Time
	DeactivateTime *time.Time
	IsPublic       bool
}

type Run struct {
	ID                  int64
	UserID              int64
	ContestID           int64
	LanguageID          int64
	ProblemID           int64
	SubmitTime          time.Time
	LocalSubmitTime     *time.Time
	StartedExecingTime  *time.Time
	FinishedExecingTime *time.Time
	SourceCode          string
	RunInput            string
	CorrectOutput       *string
	RunOutput           *string
	IsSubmission        bool
	IsPassed            *bool
	IsPriority          bool
	State               RunState
}

func (r Run) IsJudging() bool {
	return r.StartedExecingTime != nil && r.FinishedExecingTime == nil
}

func (r Run) IsJudged() bool {
	return r.FinishedExecingTime != nil
}

type Configuration struct {
	Key      string
	Val      string
	ValType  ValType
	Category string
}

// Join records for the many-to-many links named in the design notes —
// navigated by id, never embedded as owning pointers.
type ContestUser struct {
	ContestID int64
	UserID    int64
}

type ContestProblem struct {
	ContestID int64
	ProblemID int64
}

type UserUserRole struct {
	UserID int64
	Role   Role
}

// Clarification is a contestant question or judge/operator announcement
// scoped to a contest and, optionally, a single problem. A reply sets
// ParentID to the row it answers; a top-level question or announcement
// leaves it nil.
type Clarification struct {
	ID           int64
	ContestID    int64
	ProblemID    *int64
	AskerUserID  int64
	ParentID     *int64
	Contents     string
	CreationTime time.Time
	IsPublic     bool
}

// SavedCode is a contestant's autosaved editor draft for one problem in one
// contest, in one language, overwritten on every save.
type SavedCode struct {
	ContestID       int64
	ProblemID       int64
	UserID          int64
	LanguageID      int64
	SourceCode      string
	LastUpdatedTime time.Time
}
