// Package models holds the wire-shaped and in-memory records shared across
// seriesvault's packages: catalog records fetched from TheTVDB, the
// classification outcome for a single file, and the per-file bookmark
// flags persisted alongside a folder.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
)

// Action is the classification outcome the Intent Classifier assigns to a
// single file.
type Action int

const (
	ActionRename Action = iota
	ActionComplete
	ActionIgnore
	ActionDelete
	ActionWhitelist

	numActions = int(ActionWhitelist) + 1
)

// NumActions is the size of the Action enumeration, used to size
// fixed-length histograms without importing filetable from models.
const NumActions = numActions

func (a Action) String() string {
	switch a {
	case ActionRename:
		return "rename"
	case ActionComplete:
		return "complete"
	case ActionIgnore:
		return "ignore"
	case ActionDelete:
		return "delete"
	case ActionWhitelist:
		return "whitelist"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// EpisodeKey identifies a single episode by season and episode number. It is
// totally ordered by season*1000 + episode, matching the catalog's own
// numbering scheme.
type EpisodeKey struct {
	Season  uint32
	Episode uint32
}

func (k EpisodeKey) ordinal() uint64 {
	return uint64(k.Season)*1000 + uint64(k.Episode)
}

// Less reports whether k sorts before other.
func (k EpisodeKey) Less(other EpisodeKey) bool {
	return k.ordinal() < other.ordinal()
}

func (k EpisodeKey) String() string {
	return fmt.Sprintf("S%02dE%02d", k.Season, k.Episode)
}

// Series is the canonical catalog record for a TV series. Only ID and Name
// are load-bearing for classification; the rest is presentational.
type Series struct {
	ID         uint32   `json:"id"`
	Name       string   `json:"seriesName"`
	FirstAired string   `json:"firstAired,omitempty"`
	Status     string   `json:"status,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	Genre      []string `json:"genre,omitempty"`
	IMDBID     string   `json:"imdbId,omitempty"`
	Network    string   `json:"network,omitempty"`
	Banner     string   `json:"banner,omitempty"`
}

// Episode is a single catalog episode record.
type Episode struct {
	ID         uint32 `json:"id"`
	Season     uint32 `json:"airedSeason"`
	Episode    uint32 `json:"airedEpisodeNumber"`
	FirstAired string `json:"firstAired,omitempty"`
	Name       string `json:"episodeName,omitempty"`
	Overview   string `json:"overview,omitempty"`
}

// Key returns the EpisodeKey this episode occupies in a Metadata Cache.
func (e Episode) Key() EpisodeKey {
	return EpisodeKey{Season: e.Season, Episode: e.Episode}
}

// FileRecord is one classified file within a folder's File Table.
type FileRecord struct {
	Src           string
	SrcDescriptor *EpisodeKey
	Action        Action
	Dest          string
	IsEnabled     bool
}

// BookmarkFlags are the sparse per-file flags persisted in bookmarks.json.
type BookmarkFlags struct {
	IsFavourite bool
	IsRead      bool
	IsUnread    bool
}

// IsZero reports whether every flag is false, the condition under which a
// bookmark entry is omitted from serialization entirely.
func (f BookmarkFlags) IsZero() bool {
	return !f.IsFavourite && !f.IsRead && !f.IsUnread
}

// FolderStatus is the derived summary classification of a folder.
type FolderStatus int

const (
	FolderStatusUnknown FolderStatus = iota
	FolderStatusEmpty
	FolderStatusPending
	FolderStatusDone
)

func (s FolderStatus) String() string {
	switch s {
	case FolderStatusUnknown:
		return "unknown"
	case FolderStatusEmpty:
		return "empty"
	case FolderStatusPending:
		return "pending"
	case FolderStatusDone:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FilterRules is the immutable-after-load configuration governing
// classification: blacklisted extensions and whitelisted folders,
// basenames, and tag labels.
type FilterRules struct {
	BlacklistExtensions map[string]struct{}
	WhitelistFolders    map[string]struct{}
	WhitelistFilenames  map[string]struct{}
	WhitelistTags       map[string]struct{}
}

// NewFilterRules builds a FilterRules from plain string slices, as loaded
// from app_config.json.
func NewFilterRules(blacklistExtensions, whitelistFolders, whitelistFilenames, whitelistTags []string) FilterRules {
	return FilterRules{
		BlacklistExtensions: toSet(blacklistExtensions),
		WhitelistFolders:    toSet(whitelistFolders),
		WhitelistFilenames:  toSet(whitelistFilenames),
		WhitelistTags:       toSet(whitelistTags),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// IsBlacklistedExtension reports whether ext (without a leading dot) is in
// the blacklist.
func (r FilterRules) IsBlacklistedExtension(ext string) bool {
	_, ok := r.BlacklistExtensions[ext]
	return ok
}

// IsWhitelistedFolder reports whether name is a whitelisted folder name.
func (r FilterRules) IsWhitelistedFolder(name string) bool {
	_, ok := r.WhitelistFolders[name]
	return ok
}

// IsWhitelistedFilename reports whether name is a whitelisted basename.
func (r FilterRules) IsWhitelistedFilename(name string) bool {
	_, ok := r.WhitelistFilenames[name]
	return ok
}

// IsWhitelistedTag reports whether tag is a whitelisted tag label.
func (r FilterRules) IsWhitelistedTag(tag string) bool {
	_, ok := r.WhitelistTags[tag]
	return ok
}

// Credentials is the shape of the catalog login payload, stored under
// "credentials" in credentials.json; the cached token lives beside it in
// CredentialsFile.
type Credentials struct {
	APIKey   string `json:"apikey"`
	UserKey  string `json:"userkey"`
	Username string `json:"username"`
}

// CredentialsFile is the on-disk document at <config_path>/credentials.json.
type CredentialsFile struct {
	Credentials Credentials `json:"credentials"`
	Token       string      `json:"token"`
}

// ErrorKind tags the originating boundary of an error-list entry.
type ErrorKind int

const (
	ErrorKindConfigParse ErrorKind = iota
	ErrorKindIO
	ErrorKindWireDecode
	ErrorKindRemoteHTTP
	ErrorKindTransport
	ErrorKindCachePreconditionUnmet
	ErrorKindSessionRequired
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfigParse:
		return "ConfigParse"
	case ErrorKindIO:
		return "IO"
	case ErrorKindWireDecode:
		return "WireDecode"
	case ErrorKindRemoteHTTP:
		return "RemoteHTTP"
	case ErrorKindTransport:
		return "Transport"
	case ErrorKindCachePreconditionUnmet:
		return "CachePreconditionUnmet"
	case ErrorKindSessionRequired:
		return "SessionRequired"
	default:
		return fmt.Sprintf("errorkind(%d)", int(k))
	}
}

// ErrorEntry is one human-readable message appended to a folder's (or the
// App's) error list. ID lets a caller address a specific entry for
// removal without relying on slice position; Timestamp is formatted at
// construction so the list can be rendered without re-parsing.
type ErrorEntry struct {
	ID        string    `json:"id"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
}

// NewErrorEntry builds an ErrorEntry stamped with a fresh identifier and
// the current time.
func NewErrorEntry(kind ErrorKind, message string) ErrorEntry {
	return ErrorEntry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Timestamp: strftime.Format("%Y-%m-%dT%H:%M:%S%z", time.Now()),
	}
}

// Session holds a TVDB bearer token plus its decoded (not verified)
// expiry, used to decide when RefreshToken should fire proactively.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session's token has passed its expiry, or
// is within skew of doing so.
func (s Session) Expired(skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(skew).After(s.ExpiresAt)
}
