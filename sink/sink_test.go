package sink

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/models"
)

var testBatch = models.ExtractionBatch{
	{Brand: "AMD", Model: "Ryzen 9 7950X3D", Price: "61990"},
	{Brand: "Intel", Model: "Core i9 14900K", Price: "54990"},
	{Brand: "AMD", Model: "Ryzen 5 5600X", Price: "32990"},
}

func TestCSV_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, NewCSV(io.Discard).Write(context.Background(), path, testBatch))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, len(testBatch)+1)
	assert.Equal(t, []string{"brand", "model", "price"}, rows[0])
	assert.Equal(t, testBatch.Rows(), rows[1:])
}

func TestCSV_WriteStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSV(&buf).Write(context.Background(), StdoutDestination, testBatch[:1]))

	assert.Equal(t, "brand,model,price\nAMD,Ryzen 9 7950X3D,61990\n", buf.String())
}

func TestJSON_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, NewJSON(io.Discard).Write(context.Background(), path, testBatch))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got models.ExtractionBatch
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, testBatch, got)
	assert.Contains(t, string(raw), "\n  {")
}

func TestFile_BadPath(t *testing.T) {
	err := NewJSON(io.Discard).Write(context.Background(), filepath.Join(t.TempDir(), "missing", "out.json"), testBatch)
	assert.Error(t, err)
}

func TestStdout_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewStdout(&buf).Write(context.Background(), "", testBatch))

	out := buf.String()
	assert.Contains(t, out, "Ryzen 9 7950X3D")
	assert.Contains(t, out, "54990")
	assert.Contains(t, out, "TOTAL")

	buf.Reset()
	require.NoError(t, NewStdout(&buf).Write(context.Background(), "markdown", testBatch))
	assert.Contains(t, buf.String(), "| AMD |")
}

func TestSQLite_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "", testBatch))
	require.NoError(t, s.Write(ctx, "cpu_prices", testBatch[:1]))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT brand, model, price FROM products ORDER BY position`)
	require.NoError(t, err)
	defer rows.Close()

	var got models.ExtractionBatch
	for rows.Next() {
		var r models.ProductRecord
		require.NoError(t, rows.Scan(&r.Brand, &r.Model, &r.Price))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, testBatch, got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cpu_prices`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLite_RejectsBadTableName(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer s.Close()

	err = s.Write(context.Background(), "products; DROP TABLE x", testBatch)
	assert.ErrorContains(t, err, "invalid table name")
}

func TestWebhook_SignedDelivery(t *testing.T) {
	var gotSig string
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "sha256="+Sign("s3cret", body), gotSig)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL, "s3cret").Write(context.Background(), "", testBatch))

	assert.NotEmpty(t, gotSig)
	assert.Equal(t, "batch.extracted", got.Type)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, testBatch, got.Products)
}

func TestWebhook_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook("", "")
	wh.retryDelays = []time.Duration{time.Millisecond, time.Millisecond}

	require.NoError(t, wh.Write(context.Background(), srv.URL, testBatch))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "")
	wh.retryDelays = []time.Duration{time.Millisecond}

	assert.ErrorContains(t, wh.Write(context.Background(), "", testBatch), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhook_NoEndpoint(t *testing.T) {
	assert.Error(t, NewWebhook("", "").Write(context.Background(), "", testBatch))
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(config.SinkConfig{
		Default:    NameJSON,
		SQLitePath: filepath.Join(t.TempDir(), "r.db"),
	})
	require.NoError(t, err)
	defer r.Close()

	s, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, NameJSON, s.Name())

	_, err = r.Get("kafka")
	assert.ErrorIs(t, err, ErrUnknownSink)

	assert.Equal(t, []string{NameCSV, NameJSON, NameSQLite, NameStdout, NameWebhook}, r.Names())
}

func TestRegistry_UnavailableDefaultFallsBack(t *testing.T) {
	r, err := NewRegistry(config.SinkConfig{Default: NamePostgres})
	require.NoError(t, err)
	defer r.Close()

	s, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, NameStdout, s.Name())
}

func TestRedis_Write(t *testing.T) {
	addr := os.Getenv("CATALOGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOGER_TEST_REDIS_ADDR not set")
	}
	s := NewRedis(addr, "", 0, 1000)
	defer s.Close()

	ctx := context.Background()
	stream := "cataloger_test_" + time.Now().Format("150405.000000")
	require.NoError(t, s.Write(ctx, stream, testBatch))
	defer s.client.Del(ctx, stream)

	n, err := s.client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testBatch)), n)
}

func TestPostgres_Write(t *testing.T) {
	url := os.Getenv("CATALOGER_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("CATALOGER_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	table := "cataloger_test_products"
	_, _ = s.db.Exec(ctx, `DROP TABLE IF EXISTS `+table)
	defer s.db.Exec(ctx, `DROP TABLE IF EXISTS `+table)

	require.NoError(t, s.Write(ctx, table, testBatch))

	var n int
	require.NoError(t, s.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n))
	assert.Equal(t, len(testBatch), n)
}
