package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	classifyCategory = "general"
	classifyConfidence = 0.5
	classifyFormat = "text"
	archiveAccount = ""
	archiveContainer = ""
	previewFeeds = nil
	previewPeriod = "daily"
	previewAgency = string(models.AgencyNIS)
	previewOut = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	t.Run("argument", func(t *testing.T) {
		out, err := execute(t, "", "hash-password", "s3cret-pass")
		require.NoError(t, err)
		hash := strings.TrimSpace(out)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := execute(t, "from-stdin\n", "hash-password")
		require.NoError(t, err)
		hash := strings.TrimSpace(out)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from-stdin")))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := execute(t, "\n", "hash-password")
		assert.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	out, err := execute(t, "", "classify", "Planned bomb attack on the mall",
		"--category", "terrorism", "--confidence", "0.9", "--format", "json")
	require.NoError(t, err)

	var result classification
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.ThreatCritical, result.ThreatLevel)
	assert.Equal(t, int64(2_500_000_000), result.EstimatedImpact)
	assert.Equal(t, []string{"NIS", "DCI", "KDF"}, result.AgenciesToNotify)
	assert.InDelta(t, 0.4, result.ResponseTimeHours, 0.001)
	assert.Len(t, result.RecommendedActions, 3)
}

func TestClassifyText(t *testing.T) {
	out, err := execute(t, "", "classify", "Routine patrol report")
	require.NoError(t, err)
	assert.Contains(t, out, "Threat level:    LOW")
	assert.Contains(t, out, "Impact (KES):    5000000")
	assert.Contains(t, out, "Notify:          DCI")
}

func TestClassifyRejectsConfidence(t *testing.T) {
	_, err := execute(t, "", "classify", "anything", "--confidence", "1.5")
	assert.Error(t, err)
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
		wantErr  bool
	}{
		{"higher clearance", []string{"SECRET", "CONFIDENTIAL"}, "ALLOWED", false},
		{"equal clearance", []string{"restricted", "restricted"}, "ALLOWED", false},
		{"lower clearance", []string{"RESTRICTED", "SECRET"}, "DENIED", false},
		{"unknown clearance", []string{"TOP_SECRET", "UNCLASSIFIED"}, "DENIED", false},
		{"unknown classification", []string{"SECRET", "COSMIC"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"check-access"}, tt.args...)...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, tt.expected), out)
		})
	}
}

type fakeArchive struct {
	blobs map[string][]byte
}

func (f *fakeArchive) Store(ctx context.Context, name string, data []byte) error {
	f.blobs[name] = data
	return nil
}

func (f *fakeArchive) Retrieve(ctx context.Context, name string) ([]byte, error) {
	data, ok := f.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", name)
	}
	return data, nil
}

func (f *fakeArchive) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range f.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeArchive) Delete(ctx context.Context, name string) error {
	delete(f.blobs, name)
	return nil
}

func TestArchiveCommands(t *testing.T) {
	archive := &fakeArchive{blobs: map[string][]byte{
		"alerts/2026/10/17/a1.json": []byte(`{"id":"a1"}`),
		"digests/daily/x.json":      []byte(`{}`),
	}}

	var gotAccount, gotContainer string
	original := newArchive
	newArchive = func(ctx context.Context, account, container string) (storage.Archive, error) {
		gotAccount, gotContainer = account, container
		return archive, nil
	}
	defer func() { newArchive = original }()

	t.Setenv("AZURE_STORAGE_ACCOUNT", "fusionstore")
	t.Setenv("AZURE_STORAGE_CONTAINER", "")

	out, err := execute(t, "", "archive", "list", "alerts/")
	require.NoError(t, err)
	assert.Equal(t, "alerts/2026/10/17/a1.json\n", out)
	assert.Equal(t, "fusionstore", gotAccount)
	assert.Equal(t, "fusion-archive", gotContainer)

	out, err = execute(t, "", "archive", "get", "alerts/2026/10/17/a1.json", "--container", "ops")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a1"}`, out)
	assert.Equal(t, "ops", gotContainer)

	_, err = execute(t, "", "archive", "delete", "digests/daily/x.json")
	require.NoError(t, err)
	assert.NotContains(t, archive.blobs, "digests/daily/x.json")
}

func TestArchiveRequiresAccount(t *testing.T) {
	t.Setenv("AZURE_STORAGE_ACCOUNT", "")
	_, err := execute(t, "", "archive", "list")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":"1","title":"Planned bomb attack","content":"Chatter about a planned bomb attack","category":"terrorism","confidence":0.9},
			{"id":"2","title":"Market day","content":"Routine market day"}
		]}`)
	}))
	defer feed.Close()

	out := filepath.Join(t.TempDir(), "digest.json")
	stdout, err := execute(t, "", "preview", "--feed", feed.URL, "--out", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "FUSION DIGEST (daily)")
	assert.Contains(t, stdout, "Reports:   2")
	assert.Regexp(t, `CRITICAL:\s+1`, stdout)
	assert.Regexp(t, `LOW:\s+1`, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var digest models.Digest
	require.NoError(t, json.Unmarshal(data, &digest))
	assert.Equal(t, 2, digest.TotalReports)
	assert.Equal(t, 1, digest.ByCategory["terrorism"])
}

func TestPreviewRequiresFeed(t *testing.T) {
	t.Setenv("FEED_URLS", "")
	_, err := execute(t, "", "preview")
	assert.Error(t, err)
}
