package contract

import (
	"strings"
	"time"
)

// Role is a logical agent role behind the routing endpoint.
type Role string

const (
	RoleMaster       Role = "master"
	RoleProfile      Role = "profile"
	RoleSkillMapping Role = "skill_mapping"
	RolePathway      Role = "pathway"
	RolePortfolio    Role = "portfolio"
)

// Category tags which downstream agent handled a query. It is metadata returned by the
// remote service; an empty Category means the service did not say.
type Category string

const (
	CategoryNone         Category = ""
	CategoryProfile      Category = "profile"
	CategorySkillMapping Category = "skill_mapping"
	CategoryPathway      Category = "pathway"
	CategoryPortfolio    Category = "portfolio"
)

// Categories lists the downstream categories in routing order.
var Categories = []Category{
	CategoryProfile,
	CategorySkillMapping,
	CategoryPathway,
	CategoryPortfolio,
}

// ParseCategory normalizes a remote tag. Unknown tags return false.
func ParseCategory(raw string) (Category, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch Category(norm) {
	case CategoryNone:
		return CategoryNone, true
	case CategoryProfile, CategorySkillMapping, CategoryPathway, CategoryPortfolio:
		return Category(norm), true
	case "skillmapping", "skills":
		return CategorySkillMapping, true
	}
	return CategoryNone, false
}

// Role returns the specialist role serving c.
func (c Category) Role() Role {
	if c == CategoryNone {
		return RoleMaster
	}
	return Role(c)
}

type AssetKind string

const (
	AssetAudio      AssetKind = "audio"
	AssetDocument   AssetKind = "document"
	AssetTranscript AssetKind = "transcript"
)

func (k AssetKind) Valid() bool {
	switch k {
	case AssetAudio, AssetDocument, AssetTranscript:
		return true
	}
	return false
}

// AssetReference locates a blob in the remote object store. It is only handed out after
// the store acknowledged the write.
type AssetReference struct {
	Key       string    `json:"key"`
	SessionID string    `json:"session_id"`
	Kind      AssetKind `json:"kind"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PortfolioAsset struct {
	Ref  AssetReference `json:"ref"`
	Data []byte         `json:"-"`
}

// Query is the user input of one exchange. Treat as immutable once submitted.
type Query struct {
	SessionID   string          `json:"session_id"`
	Text        string          `json:"text"`
	AudioRef    *AssetReference `json:"audio_ref,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

type AgentResponse struct {
	Text       string    `json:"text"`
	Category   Category  `json:"category"`
	AgentID    string    `json:"agent_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Exchange is one recorded query/response pair. Seq starts at 1 and is assigned by the
// session store on append.
type Exchange struct {
	Seq      int64         `json:"seq"`
	Query    Query         `json:"query"`
	Response AgentResponse `json:"response"`
}

// SessionState is a read-only snapshot of the remote session history.
type SessionState struct {
	SessionID string     `json:"session_id"`
	CreatedAt time.Time  `json:"created_at"`
	Exchanges []Exchange `json:"exchanges"`
}

type RouteRequest struct {
	SessionID string     `json:"session_id"`
	Text      string     `json:"text"`
	History   []Exchange `json:"history,omitempty"`
}

// Classification is the master agent's routing decision. Reply is set only when the
// master answers without a handoff.
type Classification struct {
	Category    Category `json:"category"`
	HandoffNote string   `json:"handoff_note,omitempty"`
	Reply       string   `json:"reply,omitempty"`
}

// Event is emitted after a remote write has been acknowledged.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq,omitempty"`
	Category  Category  `json:"category,omitempty"`
	AssetKey  string    `json:"asset_key,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventExchangeRecorded = "exchange.recorded"
	EventAssetSaved       = "asset.saved"
	EventAssetDeleted     = "asset.deleted"
)
