package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"recbase/internal/services"
)

// Job is one batch member. Load supplies the bytes and may rename the
// request; an empty name keeps Request.Name.
type Job struct {
	Request Request
	Load    func(ctx context.Context) (string, []byte, error)
}

// FileJob reads a recording from disk, refusing files over the configured
// size limit before they are loaded into memory.
func (s *Service) FileJob(path string, req Request) Job {
	if req.Name == "" {
		req.Name = filepath.Base(path)
	}
	if req.Reference == "" {
		req.Reference = path
	}
	return Job{
		Request: req,
		Load: func(context.Context) (string, []byte, error) {
			data, err := readFile(path, s.maxBytes)
			return "", data, err
		},
	}
}

func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageHash, "read", path, err)
	}
	defer f.Close()
	data, err := readLimited(f, limit, path)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrValidation, services.StageHash, "read", path, err)
	}
	return data, nil
}

// Batch ingests jobs on a pool of configured size. Reports are returned in
// job order; per-file failures are carried on the reports. The error is
// non-nil only when ctx ends before every job ran.
func (s *Service) Batch(ctx context.Context, jobs []Job) ([]Report, error) {
	reports := make([]Report, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = Report{Name: job.Request.Name, Err: err}
				return err
			}
			reports[i] = s.runJob(gctx, job)
			return nil
		})
	}
	err := g.Wait()
	return reports, err
}

func (s *Service) runJob(ctx context.Context, job Job) Report {
	req := job.Request
	if job.Load != nil {
		name, data, err := job.Load(ctx)
		if name != "" {
			req.Name = name
		}
		if err != nil {
			return Report{Name: req.Name, Err: err}
		}
		req.Data = data
	}
	report, _ := s.Ingest(ctx, req)
	return report
}

// Failed counts reports carrying an error.
func Failed(reports []Report) int {
	n := 0
	for _, r := range reports {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// readLimited reads at most limit bytes from r, failing when more remain.
func readLimited(r io.Reader, limit int64, name string) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, services.Wrap(services.ErrValidation, services.StageHash, "read",
			fmt.Sprintf("%s exceeds %d bytes", name, limit), nil)
	}
	return data, nil
}
