package session

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "salesdash_session"

	// FiltersKey is the session key for the last applied filters
	FiltersKey = "filters"

	// SortKey is the session key for the table sort order
	SortKey = "sort"
)

// Preferences are the dashboard choices remembered per browser
type Preferences struct {
	Filters salesapi.FilterSet
	Sort    dashboard.SortConfig
}

// Options configures the session cookie
type Options struct {
	MaxAgeDays int
	Secure     bool
}

// Manager wraps gorilla/sessions for our use case
type Manager struct {
	store *sessions.CookieStore
}

// NewManager creates a new session manager
// secretKey should be 32 bytes
func NewManager(secretKey []byte, opts Options) *Manager {
	store := sessions.NewCookieStore(secretKey)

	maxAge := opts.MaxAgeDays * 24 * 60 * 60
	if maxAge <= 0 {
		maxAge = 30 * 24 * 60 * 60
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store: store,
	}
}

// Preferences returns the remembered filters and sort. A missing or unreadable
// cookie yields no filters and the default sort.
func (m *Manager) Preferences(r *http.Request) Preferences {
	prefs := Preferences{Sort: dashboard.DefaultSort()}

	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return prefs
	}

	if raw, ok := session.Values[FiltersKey].(string); ok {
		var filters salesapi.FilterSet
		if json.Unmarshal([]byte(raw), &filters) == nil {
			prefs.Filters = filters
		}
	}
	if raw, ok := session.Values[SortKey].(string); ok {
		var sort dashboard.SortConfig
		if json.Unmarshal([]byte(raw), &sort) == nil && sort.Key != "" {
			prefs.Sort = sort
		}
	}

	return prefs
}

// SavePreferences stores the filters and sort in the session cookie
func (m *Manager) SavePreferences(r *http.Request, w http.ResponseWriter, prefs Preferences) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		// Create new session if the cookie cannot be decoded
		session, _ = m.store.New(r, SessionName)
	}

	filters, err := json.Marshal(prefs.Filters)
	if err != nil {
		return err
	}
	sort, err := json.Marshal(prefs.Sort)
	if err != nil {
		return err
	}

	session.Values[FiltersKey] = string(filters)
	session.Values[SortKey] = string(sort)
	return session.Save(r, w)
}

// ClearFilters forgets the remembered filters but keeps the sort order
func (m *Manager) ClearFilters(r *http.Request, w http.ResponseWriter) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil // Session doesn't exist, nothing to clear
	}

	delete(session.Values, FiltersKey)
	return session.Save(r, w)
}
