package web

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const prefsCookie = "ddvscan_prefs"

// Prefs are the last submitted form values. They only pre-fill the form.
type Prefs struct {
	Month       int
	Weekdays    string
	Concurrency int
	RetryWindow int
}

// PrefStore keeps Prefs in a signed and encrypted cookie.
type PrefStore struct{ sc *securecookie.SecureCookie }

// NewPrefStore uses the given keys, or random ones when hashKey is nil. With
// random keys, cookies stop decoding after a restart.
func NewPrefStore(hashKey, blockKey []byte) *PrefStore {
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((90 * 24 * time.Hour).Seconds()))
	return &PrefStore{sc: sc}
}

func (s *PrefStore) Save(w http.ResponseWriter, p Prefs) error {
	encoded, err := s.sc.Encode(prefsCookie, p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name: prefsCookie, Value: encoded, Path: "/",
		MaxAge:   int((90 * 24 * time.Hour).Seconds()),
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *PrefStore) Load(r *http.Request) (Prefs, bool) {
	c, err := r.Cookie(prefsCookie)
	if err != nil {
		return Prefs{}, false
	}
	var p Prefs
	if err := s.sc.Decode(prefsCookie, c.Value, &p); err != nil {
		return Prefs{}, false
	}
	return p, true
}
