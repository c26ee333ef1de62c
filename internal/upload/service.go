// Package upload stores tutor files and turns them into generated questions.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Isaacolagoke/Testai/internal/ai"
	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/extract"
	"github.com/Isaacolagoke/Testai/internal/logger"
	"github.com/Isaacolagoke/Testai/internal/storage"
)

const (
	sniffLen          = 3072
	msgUnsupported    = "Unsupported file type. Please upload an image, PDF, DOC, or TXT file."
	msgAnalyzeFailed  = "Error analyzing content"
	msgGenerateFailed = "Error generating questions"
)

type Service struct {
	store  exam.Store
	blobs  storage.BlobStore
	gen    ai.Generator
	log    *logger.Logger
	tmpDir string
	now    func() time.Time
}

func NewService(store exam.Store, blobs storage.BlobStore, gen ai.Generator, log *logger.Logger, tmpDir string) *Service {
	return &Service{
		store:  store,
		blobs:  blobs,
		gen:    gen,
		log:    log.With("service", "UploadService"),
		tmpDir: tmpDir,
		now:    time.Now,
	}
}

// File is an incoming multipart part.
type File struct {
	Name     string
	MimeType string // as declared by the client
	Body     io.Reader
}

// resolveMime trusts the declared type unless it is missing or generic, in
// which case the content is sniffed. The returned reader replays the sniffed bytes.
func resolveMime(f File) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	body := io.MultiReader(bytes.NewReader(head), f.Body)

	declared := strings.ToLower(strings.TrimSpace(f.MimeType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared, body, nil
	}
	sniffed := mimetype.Detect(head).String()
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed, body, nil
}

// Upload stores f under the test's namespace and records it.
func (s *Service) Upload(ctx context.Context, testID string, f File) (exam.Upload, error) {
	mt, body, err := resolveMime(f)
	if err != nil {
		return exam.Upload{}, apierr.Upstream("Server error during upload", err)
	}
	if !extract.AllowedMimeTypes[mt] {
		return exam.Upload{}, apierr.BadRequest(msgUnsupported)
	}
	ft, _ := extract.Classify(mt)

	if _, err := s.store.GetTest(ctx, testID); err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return exam.Upload{}, apierr.NotFound("Test not found")
		}
		return exam.Upload{}, apierr.Upstream("Server error during upload", err)
	}

	key := fmt.Sprintf("test-%s/%d-%d%s", testID, s.now().UnixMilli(), rand.IntN(1e9), strings.ToLower(filepath.Ext(f.Name)))
	if err := s.blobs.Put(ctx, key, body, mt); err != nil {
		return exam.Upload{}, apierr.Upstream("File upload to storage failed", err)
	}
	u, err := s.store.CreateUpload(ctx, exam.Upload{
		TestID:   testID,
		FileURL:  s.blobs.PublicURL(key),
		FileKey:  key,
		FileType: ft,
		MimeType: mt,
	})
	if err != nil {
		return exam.Upload{}, apierr.Upstream("Error saving file data to database", err)
	}
	s.log.Info("upload stored", "upload_id", u.ID, "test_id", testID, "file_type", string(ft), "key", key)
	return u, nil
}

type Analysis struct {
	UploadID  string          `json:"upload_id,omitempty"`
	TestID    string          `json:"test_id"`
	Cached    bool            `json:"-"`
	Questions []ai.Generated  `json:"questions"`
	Failures  []exam.Failure  `json:"failures"`
	Saved     []exam.Question `json:"-"`
}

// Analyze generates questions from a stored upload. A cached result is
// returned as is, without calling the model.
func (s *Service) Analyze(ctx context.Context, uploadID, testID string, spec ai.Spec) (Analysis, error) {
	u, err := s.store.GetUpload(ctx, uploadID)
	if errors.Is(err, exam.ErrNotFound) {
		return Analysis{}, apierr.NotFound("Upload not found")
	}
	if err != nil {
		return Analysis{}, apierr.Upstream(msgAnalyzeFailed, err)
	}
	if u.TestID != testID {
		return Analysis{}, apierr.BadRequest("Upload does not belong to the specified test")
	}
	if u.State() == exam.UploadAnalyzed {
		return s.cached(u)
	}

	in, err := s.load(ctx, u)
	if err != nil {
		return Analysis{}, apierr.Upstream(msgAnalyzeFailed, err)
	}
	qs, err := s.gen.Generate(ctx, in, spec)
	if err != nil {
		return Analysis{}, apierr.Upstream(msgAnalyzeFailed, err)
	}

	raw, err := json.Marshal(qs)
	if err != nil {
		return Analysis{}, apierr.Upstream(msgAnalyzeFailed, err)
	}
	stored, won, err := s.store.CacheAnalysis(ctx, u.ID, raw)
	if err != nil {
		return Analysis{}, apierr.Upstream("Error saving analysis results", err)
	}
	if !won {
		// a concurrent request cached first; its questions are the ones persisted
		return s.cached(stored)
	}

	res := s.persist(ctx, testID, qs)
	res.UploadID = u.ID
	return res, nil
}

// Generate creates questions from raw text for a test.
func (s *Service) Generate(ctx context.Context, testID, content string, spec ai.Spec) (Analysis, error) {
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return Analysis{}, apierr.NotFound("Test not found")
		}
		return Analysis{}, apierr.Upstream(msgGenerateFailed, err)
	}
	qs, err := s.gen.Generate(ctx, ai.Input{Text: content}, spec)
	if err != nil {
		return Analysis{}, apierr.Upstream(msgGenerateFailed, err)
	}
	return s.persist(ctx, testID, qs), nil
}

func (s *Service) cached(u exam.Upload) (Analysis, error) {
	var qs []ai.Generated
	if err := json.Unmarshal(u.AnalysisResult, &qs); err != nil {
		return Analysis{}, apierr.Upstream(msgAnalyzeFailed, fmt.Errorf("cached analysis of %s: %w", u.ID, err))
	}
	return Analysis{UploadID: u.ID, TestID: u.TestID, Cached: true, Questions: qs, Failures: []exam.Failure{}}, nil
}

func (s *Service) persist(ctx context.Context, testID string, qs []ai.Generated) Analysis {
	batch := make([]exam.Question, 0, len(qs))
	for _, g := range qs {
		batch = append(batch, g.Question(testID))
	}
	outcomes := exam.AddQuestions(ctx, s.store, batch)
	for _, o := range exam.Failed(outcomes) {
		s.log.Warn("generated question not saved", "test_id", testID, "index", o.Index, "error", o.Err.Error())
	}
	saved := exam.Inserted(outcomes)
	if len(saved) == 0 && len(batch) > 0 {
		s.log.Error("no generated questions saved", "test_id", testID, "generated", len(batch))
	}
	return Analysis{
		TestID:    testID,
		Questions: qs,
		Failures:  exam.Failures(outcomes),
		Saved:     saved,
	}
}

// load copies the stored object to a temp file and extracts it. The temp
// file is removed on every return path.
func (s *Service) load(ctx context.Context, u exam.Upload) (ai.Input, error) {
	rc, err := s.blobs.Get(ctx, u.FileKey)
	if err != nil {
		return ai.Input{}, fmt.Errorf("fetch %s: %w", u.FileKey, err)
	}
	defer rc.Close()

	if s.tmpDir != "" {
		if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
			return ai.Input{}, err
		}
	}
	tmp, err := os.CreateTemp(s.tmpDir, u.ID+"-*"+filepath.Ext(u.FileKey))
	if err != nil {
		return ai.Input{}, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, rc); err != nil {
		return ai.Input{}, fmt.Errorf("copy %s: %w", u.FileKey, err)
	}
	if err := tmp.Close(); err != nil {
		return ai.Input{}, err
	}

	c, err := extract.FromFile(tmp.Name(), u.FileType)
	if err != nil {
		return ai.Input{}, err
	}
	return ai.Input{Text: c.Text, Image: c.Image, MimeType: c.MimeType}, nil
}
