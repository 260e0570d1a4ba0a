package policy

type Operation string

const (
	OpUpload         Operation = "upload"
	OpList           Operation = "list"
	OpView           Operation = "view"
	OpIssueURL       Operation = "issue_url"
	OpUpdateMetadata Operation = "update_metadata"
	OpDelete         Operation = "delete"
	OpShare          Operation = "share"
)

var AllOperations = []Operation{OpUpload, OpList, OpView, OpIssueURL, OpUpdateMetadata, OpDelete, OpShare}

type Verdict bool

const (
	Allow Verdict = true
	Deny  Verdict = false
)

func (v Verdict) Allowed() bool { return bool(v) }

func (v Verdict) String() string {
	if v {
		return "allow"
	}
	return "deny"
}

// Ownership describes the caller's relation to the target asset. Both fields
// are false for operations without a target (upload, list).
type Ownership struct {
	IsOwner  bool
	IsShared bool
}

// CanPerform is the role/operation/ownership permission table.
//
// Admin overrides ownership for view, URL issuance and delete, but never for
// metadata edits or sharing. A viewer only ever reaches shared assets, even
// ones it owns.
func CanPerform(role Role, op Operation, own Ownership) Verdict {
	switch op {
	case OpUpload:
		return Verdict(role == RoleAdmin || role == RoleUser)
	case OpList:
		return Verdict(role.Valid())
	case OpView:
		return Verdict(role == RoleAdmin || own.IsOwner || own.IsShared)
	case OpIssueURL:
		if role == RoleViewer {
			return Verdict(own.IsShared)
		}
		return Verdict(role == RoleAdmin || own.IsOwner || own.IsShared)
	case OpUpdateMetadata:
		return Verdict(own.IsOwner && (role == RoleAdmin || role == RoleUser))
	case OpDelete:
		return Verdict(role == RoleAdmin || (own.IsOwner && role == RoleUser))
	case OpShare:
		return Verdict(own.IsOwner && (role == RoleAdmin || role == RoleUser))
	}
	return Deny
}

type ListScope string

const (
	ScopeOwn    ListScope = "own"
	ScopeShared ListScope = "shared"
	ScopeAll    ListScope = "all"
)

// ListScopeFor resolves the requested list scope for a role. Viewers are
// always narrowed to shared assets; only admins may list everything. The
// second return is false when the requested scope is not permitted.
func ListScopeFor(role Role, requested ListScope) (ListScope, bool) {
	switch role {
	case RoleViewer:
		if requested == "" || requested == ScopeShared || requested == ScopeOwn {
			return ScopeShared, true
		}
		return "", false
	case RoleUser:
		switch requested {
		case "", ScopeOwn:
			return ScopeOwn, true
		case ScopeShared:
			return ScopeShared, true
		}
		return "", false
	case RoleAdmin:
		switch requested {
		case "", ScopeOwn:
			return ScopeOwn, true
		case ScopeShared, ScopeAll:
			return requested, true
		}
		return "", false
	}
	return "", false
}

func ParseListScope(raw string) (ListScope, bool) {
	switch s := ListScope(raw); s {
	case "", ScopeOwn, ScopeShared, ScopeAll:
		return s, true
	}
	return "", false
}
