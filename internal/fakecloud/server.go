// Package fakecloud is an in-process stand-in for the CM Cloud service used
// by tests. It serves the login, catalogue, download-URL and image
// endpoints and lets a test inject the failures the real service shows:
// expired sessions, rejected requests, non-JPEG payloads and bad statuses.
package fakecloud

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

const sessionCookie = "cmbpc_session"

// Photo is a file held by the fake service
type Photo struct {
	FileName  string
	Key       string
	DateGroup string
	Data      []byte
}

// Server simulates the CM Cloud endpoints
type Server struct {
	server *httptest.Server

	mu       sync.Mutex
	email    string
	password string
	photos   []Photo
	byKey    map[string]Photo
	sessions map[string]bool

	requireLogin bool
	itemTotal    *int

	loginRejections  int
	metadataFailures int
	resolveFailures  int
	imageFailures    int
	statusOverrides  map[string]int

	logins          int
	metadataOffsets []int
	resolveBodies   []string
	resolveRequests int
	imageRequests   int
	absoluteURLs    bool
}

// New starts a fake service accepting the given credentials. Sessions are
// enforced: catalogue and download calls fail with a non-zero ret until the
// client has logged in.
func New(email, password string) *Server {
	s := &Server{
		email:           email,
		password:        password,
		byKey:           make(map[string]Photo),
		sessions:        make(map[string]bool),
		requireLogin:    true,
		statusOverrides: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cmbpc/login/login", s.handleLogin)
	mux.HandleFunc("/cmbpc/disk/file", s.handleDisk)
	mux.HandleFunc("/download/", s.handleImage)

	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the base URL of the fake service, with a trailing slash
func (s *Server) URL() string {
	return s.server.URL + "/"
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// AddPhoto registers a photo; listing order follows registration order
func (s *Server) AddPhoto(p Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = append(s.photos, p)
	s.byKey[p.Key] = p
}

// AddPhotos registers n JPEG photos under dateGroup and returns them
func (s *Server) AddPhotos(dateGroup string, n int) []Photo {
	s.mu.Lock()
	start := len(s.photos)
	s.mu.Unlock()

	added := make([]Photo, 0, n)
	for i := 0; i < n; i++ {
		idx := start + i
		p := Photo{
			FileName:  fmt.Sprintf("IMG_%04d.jpg", idx),
			Key:       fmt.Sprintf("%032x", idx+1),
			DateGroup: dateGroup,
			Data:      JPEG(fmt.Sprintf("photo-%d", idx)),
		}
		s.AddPhoto(p)
		added = append(added, p)
	}
	return added
}

// RequireLogin toggles session enforcement
func (s *Server) RequireLogin(required bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireLogin = required
}

// SetItemTotal overrides the itemTotal reported by catalogue pages
func (s *Server) SetItemTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemTotal = &total
}

// RejectLogins makes the next n logins answer with a non-zero ret
func (s *Server) RejectLogins(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginRejections = n
}

// FailMetadata makes the next n catalogue requests answer with a non-zero ret
func (s *Server) FailMetadata(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataFailures = n
}

// FailResolve makes the next n download-URL requests answer with a non-zero ret
func (s *Server) FailResolve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveFailures = n
}

// FailImages makes the next n image requests return an HTML page
func (s *Server) FailImages(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageFailures = n
}

// SetStatus forces every request whose path starts with prefix to answer
// with status
func (s *Server) SetStatus(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusOverrides[prefix] = status
}

// UseAbsoluteURLs makes resolved download URLs absolute instead of relative
func (s *Server) UseAbsoluteURLs(absolute bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absoluteURLs = absolute
}

// Logins returns the number of login requests received
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// MetadataOffsets returns the offsets of every catalogue request received
func (s *Server) MetadataOffsets() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.metadataOffsets...)
}

// ResolveBodies returns the raw bodies of every download-URL request
func (s *Server) ResolveBodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resolveBodies...)
}

// ResolveRequests returns the number of download-URL requests received
func (s *Server) ResolveRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveRequests
}

// ImageRequests returns the number of image requests received
func (s *Server) ImageRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageRequests
}

// JPEG returns a small payload carrying a JFIF signature
func JPEG(seed string) []byte {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00}
	data = append(data, seed...)
	return append(data, 0xFF, 0xD9)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.overridden(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.logins++
	rejected := s.loginRejections > 0
	if rejected {
		s.loginRejections--
	}
	valid := r.PostForm.Get("email") == s.email && r.PostForm.Get("password") == s.password
	var token string
	if !rejected && valid {
		token = newToken()
		s.sessions[token] = true
	}
	s.mu.Unlock()

	if token == "" {
		writeJSON(w, map[string]interface{}{"ret": 1, "msg": "login failed"})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	writeJSON(w, map[string]interface{}{"ret": 0, "msg": "ok"})
}

func (s *Server) handleDisk(w http.ResponseWriter, r *http.Request) {
	if s.overridden(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch form.Get("id") {
	case "cm_photo":
		s.handleMetadata(w, r, form)
	case "cm_photo_download":
		s.handleResolve(w, r, form, string(raw))
	default:
		writeJSON(w, map[string]interface{}{"ret": 2, "msg": "unknown id"})
	}
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request, form url.Values) {
	pageSize, _ := strconv.Atoi(form.Get("pagesize"))
	offset, _ := strconv.Atoi(form.Get("offset"))

	s.mu.Lock()
	s.metadataOffsets = append(s.metadataOffsets, offset)
	authorised := s.authorised(r)
	failing := s.metadataFailures > 0
	if failing {
		s.metadataFailures--
	}
	total := len(s.photos)
	if s.itemTotal != nil {
		total = *s.itemTotal
	}
	var page []Photo
	if offset < len(s.photos) && pageSize > 0 {
		end := min(offset+pageSize, len(s.photos))
		page = append(page, s.photos[offset:end]...)
	}
	s.mu.Unlock()

	if !authorised {
		writeJSON(w, map[string]interface{}{"ret": -1, "msg": "not logged in"})
		return
	}
	if failing {
		writeJSON(w, map[string]interface{}{"ret": 1, "msg": "temporarily unavailable"})
		return
	}

	writeJSON(w, map[string]interface{}{
		"ret": 0,
		"data": map[string]interface{}{
			"itemTotal": total,
			"list":      groupPhotos(page),
		},
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, form url.Values, raw string) {
	dateGroup := form.Get("groups[0][groupname]")
	key := form.Get("groups[0][keys][]")

	s.mu.Lock()
	s.resolveRequests++
	s.resolveBodies = append(s.resolveBodies, raw)
	authorised := s.authorised(r)
	failing := s.resolveFailures > 0
	if failing {
		s.resolveFailures--
	}
	photo, found := s.byKey[key]
	absolute := s.absoluteURLs
	s.mu.Unlock()

	switch {
	case !authorised:
		writeJSON(w, map[string]interface{}{"ret": -1, "msg": "not logged in"})
		return
	case failing:
		writeJSON(w, map[string]interface{}{"ret": 1, "msg": "temporarily unavailable"})
		return
	case !found || photo.DateGroup != dateGroup:
		writeJSON(w, map[string]interface{}{"ret": 3, "msg": "no such file"})
		return
	}

	link := "download/" + key
	if absolute {
		link = s.URL() + link
	}
	writeJSON(w, map[string]interface{}{
		"ret":  0,
		"data": map[string]interface{}{"url": link},
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.overridden(w, r) {
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/download/")

	s.mu.Lock()
	s.imageRequests++
	failing := s.imageFailures > 0
	if failing {
		s.imageFailures--
	}
	photo, found := s.byKey[key]
	s.mu.Unlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if failing {
		w.Header().Set("Content-Type", "image/jpeg")
		io.WriteString(w, "<html><body>session expired</body></html>")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(photo.Data)
}

// authorised must be called with s.mu held
func (s *Server) authorised(r *http.Request) bool {
	if !s.requireLogin {
		return true
	}
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && s.sessions[cookie.Value]
}

func (s *Server) overridden(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for prefix, status := range s.statusOverrides {
		if strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(status)
			return true
		}
	}
	return false
}

func groupPhotos(photos []Photo) []map[string]interface{} {
	groups := []map[string]interface{}{}
	var current map[string]interface{}
	var files []map[string]string
	for _, p := range photos {
		if current == nil || current["groupname"] != p.DateGroup {
			if current != nil {
				current["list"] = files
			}
			current = map[string]interface{}{"groupname": p.DateGroup}
			files = nil
			groups = append(groups, current)
		}
		files = append(files, map[string]string{"file_name": p.FileName, "key": p.Key})
	}
	if current != nil {
		current["list"] = files
	}
	return groups
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
