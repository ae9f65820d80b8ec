// Package fetch runs every sampler against each pending test-case URL and
// records the results.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"resolversampler/internal/sampler"
	"resolversampler/internal/store"
)

// Options tune a run.
type Options struct {
	// Replace re-fetches URLs that are already indexed.
	Replace bool
	// Limit caps the URLs fetched in one run; zero means no limit.
	Limit int
	// Timeout bounds each service request, from navigation to capture.
	Timeout time.Duration
	// Pause is the delay after each fetched URL.
	Pause time.Duration
}

// Result counts what a run did.
type Result struct {
	Pending int
	Fetched int
	Failed  int
}

// SampleError is a failure of one service for one test-case URL.
type SampleError struct {
	Service    string
	RequestURL string
	Err        error
}

func (e *SampleError) Error() string {
	if e.RequestURL == "" {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s | %s: %v", e.Service, e.RequestURL, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// Fetcher drives the shared page through the samplers, one URL at a time.
type Fetcher struct {
	page     sampler.Page
	samplers []sampler.Sampler
	store    *store.Store
	logger   *zap.Logger
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher. samplers run in the order given.
func New(page sampler.Page, samplers []sampler.Sampler, st *store.Store, logger *zap.Logger, opts Options) *Fetcher {
	return &Fetcher{
		page:     page,
		samplers: samplers,
		store:    st,
		logger:   logger.With(zap.String("group", st.Group())),
		opts:     opts,
		now:      time.Now,
		sleep:    sleep,
	}
}

// Pending selects the URLs to fetch this run.
func Pending(urls []string, idx *store.Index, replace bool, limit int) []string {
	var pending []string
	for _, u := range urls {
		if !replace && idx.Has(u) {
			continue
		}
		pending = append(pending, u)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending
}

// Run fetches samples for the pending URLs among urls. A URL that fails is
// logged and skipped; only cancellation or an unreadable index stop the run.
func (f *Fetcher) Run(ctx context.Context, urls []string) (Result, error) {
	idx, err := f.store.LoadIndex()
	if err != nil {
		return Result{}, err
	}

	pending := Pending(urls, idx, f.opts.Replace, f.opts.Limit)
	res := Result{Pending: len(pending)}
	f.logger.Info("starting run",
		zap.Int("test_cases", len(urls)),
		zap.Int("indexed", idx.Len()),
		zap.Int("pending", len(pending)))

	for i, u := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := f.fetchOne(ctx, idx, u); err != nil {
			res.Failed++
			f.logError(u, err)
			continue
		}
		res.Fetched++

		if i < len(pending)-1 {
			if err := f.sleep(ctx, f.opts.Pause); err != nil {
				return res, err
			}
		}
	}

	f.logger.Info("run finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("failed", res.Failed))
	return res, nil
}

type sample struct {
	service string
	path    string
	html    string

	committed bool
	backedUp  bool
}

func (f *Fetcher) fetchOne(ctx context.Context, idx *store.Index, testCaseURL string) error {
	key := store.Key(testCaseURL)

	samples := make([]sample, 0, len(f.samplers))
	for _, s := range f.samplers {
		html, err := f.sample(ctx, s, testCaseURL)
		if err != nil {
			return err
		}
		samples = append(samples, sample{
			service: s.Key(),
			path:    f.store.SamplePath(s.Key(), key),
			html:    html,
		})
	}

	prev, indexed := idx.Get(testCaseURL)
	if err := f.write(samples); err != nil {
		return err
	}

	entry := store.Entry{
		Key:            key,
		TestCaseGroup:  f.store.Group(),
		FetchTimestamp: store.Timestamp(f.now()),
		SampleFiles:    make(map[string]string, len(samples)),
	}
	for _, s := range samples {
		entry.SampleFiles[s.service] = s.path
	}

	idx.Put(testCaseURL, entry)
	if err := idx.Save(); err != nil {
		if indexed {
			idx.Put(testCaseURL, prev)
		} else {
			idx.Delete(testCaseURL)
		}
		f.restore(samples)
		return err
	}
	f.dropBackups(samples)

	services := make([]string, len(samples))
	titles := make([]string, len(samples))
	for i, s := range samples {
		services[i] = s.service
		titles[i] = pageTitle(s.html)
	}
	f.logger.Info("fetched responses",
		zap.String("url", testCaseURL),
		zap.String("key", key),
		zap.Strings("services", services),
		zap.Strings("titles", titles))
	return nil
}

// sample runs one service for testCaseURL and returns the filtered HTML.
func (f *Fetcher) sample(ctx context.Context, s sampler.Sampler, testCaseURL string) (string, error) {
	requestURL, err := s.RequestURL(testCaseURL)
	if err != nil {
		return "", &SampleError{Service: s.Name(), Err: err}
	}
	fail := func(err error) (string, error) {
		return "", &SampleError{Service: s.Name(), RequestURL: requestURL, Err: err}
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}
	// The subscription ends with ctx, so it never outlives this request.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	responses, err := f.page.Responses(ctx)
	if err != nil {
		return fail(err)
	}
	if err := f.page.Navigate(ctx, requestURL); err != nil {
		return fail(err)
	}
	if err := s.AwaitCompletion(ctx, f.page, responses); err != nil {
		return fail(err)
	}
	html, err := f.page.Content(ctx)
	if err != nil {
		return fail(err)
	}

	f.logger.Debug("captured response",
		zap.String("service", s.Key()),
		zap.String("request", requestURL),
		zap.Int("bytes", len(html)))
	return s.FilterHTML(html), nil
}

// write stores every sample or none. Samples already on disk are moved aside
// before being replaced and put back if any step fails, so the previous set
// stays intact.
func (f *Fetcher) write(samples []sample) error {
	for i, s := range samples {
		if err := f.store.StageSample(s.path, s.html); err != nil {
			f.discard(samples[:i+1])
			return err
		}
	}
	for i := range samples {
		s := &samples[i]
		backedUp, err := f.store.BackupSample(s.path)
		if err == nil {
			s.backedUp = backedUp
			err = f.store.CommitSample(s.path)
		}
		if err != nil {
			f.discard(samples[i:])
			f.restore(samples[:i+1])
			return err
		}
		s.committed = true
	}
	return nil
}

func (f *Fetcher) discard(samples []sample) {
	for _, s := range samples {
		if err := f.store.DiscardSample(s.path); err != nil {
			f.logger.Warn("failed to discard staged sample", zap.String("path", s.path), zap.Error(err))
		}
	}
}

// restore undoes the commits of samples, putting back what they replaced.
func (f *Fetcher) restore(samples []sample) {
	for _, s := range samples {
		var err error
		switch {
		case s.backedUp:
			err = f.store.RestoreSample(s.path)
		case s.committed:
			err = f.store.RemoveSample(s.path)
		}
		if err != nil {
			f.logger.Warn("failed to restore sample", zap.String("path", s.path), zap.Error(err))
		}
	}
}

func (f *Fetcher) dropBackups(samples []sample) {
	for _, s := range samples {
		if !s.backedUp {
			continue
		}
		if err := f.store.DropBackup(s.path); err != nil {
			f.logger.Warn("failed to drop sample backup", zap.String("path", s.path), zap.Error(err))
		}
	}
}

func (f *Fetcher) logError(testCaseURL string, err error) {
	fields := []zap.Field{zap.String("url", testCaseURL), zap.Error(err)}
	var se *SampleError
	if errors.As(err, &se) {
		fields = append(fields, zap.String("service", se.Service))
		if se.RequestURL != "" {
			fields = append(fields, zap.String("request", se.RequestURL))
		}
	}
	f.logger.Error("skipping test case", fields...)
}

// pageTitle extracts the document title for the run log.
func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
