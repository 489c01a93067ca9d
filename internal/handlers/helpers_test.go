package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/internal/config"
	"github.com/diewo77/pipoca/internal/db"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/internal/policy"
	"github.com/diewo77/pipoca/internal/services"
	"github.com/diewo77/pipoca/mail"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	accounts *services.AccountManager
	refs     *services.ReferenceService
	gate     *policy.AuthGate
	tokens   *auth.Tokens
	outbox   *mail.Outbox
}

// setupTestEnv creates a migrated and seeded in-memory SQLite database
// private to the test, with the services built on top of it.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	outbox := mail.NewOutbox("webmaster@localhost")
	ag := policy.NewAuthGate(gdb, time.Minute)
	accounts := services.NewAccountManager(gdb, auth.NewBcryptHasher(bcrypt.MinCost), outbox, nil)
	accounts.OnAccessChange = ag.InvalidateUser

	return &testEnv{
		db:       gdb,
		accounts: accounts,
		refs:     services.NewReferenceService(gdb, nil),
		gate:     ag,
		tokens:   tokens,
		outbox:   outbox,
	}
}

func anaFields() services.UserFields {
	return services.UserFields{
		Username:     "Ana",
		BirthDate:    models.NewDate(1990, time.January, 1),
		AudienceType: models.AudienceCurious,
	}
}

// createUser stores an account with password "secret" and, when profile is
// not empty, assigns the seeded profile of that name.
func (e *testEnv) createUser(t *testing.T, email, profile string) *models.User {
	t.Helper()
	u, err := e.accounts.CreateUser(t.Context(), email, "secret", anaFields())
	require.NoError(t, err)
	if profile != "" {
		var p models.Profile
		require.NoError(t, e.db.Where("name = ?", profile).First(&p).Error)
		require.NoError(t, e.accounts.AssignProfile(t.Context(), u.ID, &p.ID))
	}
	return u
}

// request builds a JSON request; a non-zero uid authenticates it and an
// "id" path value is set when id is non-empty.
func request(t *testing.T, method, target string, body any, uid uint, id string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	if id != "" {
		req.SetPathValue("id", id)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func idStr(id uint) string { return strconv.FormatUint(uint64(id), 10) }

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}
