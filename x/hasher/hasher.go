package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileStatus is the processing state of an uploaded file.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusHashing   FileStatus = "hashing"
	FileStatusCompleted FileStatus = "completed"
	FileStatusError     FileStatus = "error"
)

// ProcessedFile is the outcome of hashing (and optionally pinning) one
// uploaded file. The hash is a 0x-prefixed SHA-256 hex digest of the
// file bytes; identical content always yields the identical hash.
type ProcessedFile struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Size           int64         `json:"size"`
	ContentType    string        `json:"content_type,omitempty"`
	Hash           string        `json:"hash,omitempty"`
	Status         FileStatus    `json:"status"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	IPFSCID        string        `json:"ipfs_cid,omitempty"`
	IPFSURL        string        `json:"ipfs_url,omitempty"`
}

// Input is one file handed to Process.
type Input struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

// Pinner uploads file bytes to content-addressed storage.
type Pinner interface {
	Add(ctx context.Context, name string, data io.Reader) (cid string, gatewayURL string, err error)
}

// Option configures the processor.
type Option func(*Processor)

// WithPinner enables content-addressed upload of hashed files.
func WithPinner(p Pinner) Option {
	return func(pr *Processor) { pr.pinner = p }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(pr *Processor) { pr.metrics = m }
}

// Processor hashes upload batches. Files never leave the process unless
// a pinner is configured.
type Processor struct {
	cfg     Config
	pinner  Pinner
	metrics *Metrics
	log     zerolog.Logger
}

func NewProcessor(cfg Config, log zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg: cfg,
		log: log.With().Str("component", "hasher").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process hashes each input in order. A failure on one file is recorded
// on that file's entry and does not abort the rest of the batch. The
// only batch-level error is exceeding the file count limit.
func (p *Processor) Process(ctx context.Context, inputs []Input) ([]ProcessedFile, error) {
	if len(inputs) > p.cfg.MaxFiles {
		return nil, fmt.Errorf("too many files: %d exceeds limit of %d", len(inputs), p.cfg.MaxFiles)
	}

	out := make([]ProcessedFile, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		file := p.processOne(ctx, in)
		if p.metrics != nil {
			p.metrics.Record(file)
		}
		out = append(out, file)
	}
	return out, nil
}

func (p *Processor) processOne(ctx context.Context, in Input) ProcessedFile {
	start := time.Now()
	file := ProcessedFile{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Size:        in.Size,
		ContentType: in.ContentType,
		Status:      FileStatusHashing,
	}

	fail := func(msg string) ProcessedFile {
		file.Status = FileStatusError
		file.Error = msg
		file.ProcessingTime = time.Since(start)
		p.log.Warn().Str("file", in.Name).Str("error", msg).Msg("file processing failed")
		return file
	}

	if in.Size > p.cfg.MaxFileSize {
		return fail(fmt.Sprintf("file exceeds maximum size of %d bytes", p.cfg.MaxFileSize))
	}

	digest := sha256.New()
	// LimitReader guards against callers that under-report Size.
	n, err := io.Copy(digest, io.LimitReader(in.Data, p.cfg.MaxFileSize+1))
	if err != nil {
		return fail(fmt.Sprintf("hashing failed: %v", err))
	}
	if n > p.cfg.MaxFileSize {
		return fail(fmt.Sprintf("file exceeds maximum size of %d bytes", p.cfg.MaxFileSize))
	}

	file.Size = n
	file.Hash = "0x" + hex.EncodeToString(digest.Sum(nil))
	file.Status = FileStatusCompleted
	file.ProcessingTime = time.Since(start)

	if p.pinner != nil {
		if seeker, ok := in.Data.(io.Seeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err == nil {
				p.pin(ctx, &file, in)
			}
		}
	}

	p.log.Debug().
		Str("file", file.Name).
		Str("hash", file.Hash).
		Int64("size", file.Size).
		Dur("processing_time", file.ProcessingTime).
		Msg("file hashed")

	return file
}

// pin uploads the file to content-addressed storage. Pinning failure
// degrades to a log line; the file stays completed.
func (p *Processor) pin(ctx context.Context, file *ProcessedFile, in Input) {
	cid, gatewayURL, err := p.pinner.Add(ctx, in.Name, in.Data)
	if err != nil {
		p.log.Warn().Err(err).Str("file", in.Name).Msg("content-addressed upload failed")
		return
	}
	file.IPFSCID = cid
	file.IPFSURL = gatewayURL
}
