package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"clipper/internal/store"
	"clipper/internal/testsupport"
)

const jobStaleAfter = time.Hour

func TestAdmitJobInsertsNewJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	admission, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter)
	if err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}
	if admission != store.AdmissionProcess {
		t.Fatalf("expected process admission, got %s", admission)
	}

	job, err := st.GetJob(ctx, "videos/ep01.mp4", "etag-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected job row after admission")
	}
	if job.Status != store.JobProcessing {
		t.Fatalf("expected processing status, got %s", job.Status)
	}
	if job.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", job.RetryCount)
	}
	if job.StartedAt == nil {
		t.Fatal("expected started_at to be stamped")
	}
}

func TestAdmitJobSkipsFreshProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("first AdmitJob failed: %v", err)
	}

	admission, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter)
	if err != nil {
		t.Fatalf("second AdmitJob failed: %v", err)
	}
	if admission != store.AdmissionSkipDuplicate {
		t.Fatalf("expected duplicate skip while processing, got %s", admission)
	}
}

func TestAdmitJobDoneIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}
	transitioned, err := st.CompleteJob(ctx, "videos/ep01.mp4", "etag-1", store.JobDone, "")
	if err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}
	if !transitioned {
		t.Fatal("expected processing row to transition to done")
	}

	// Even a zero staleness window must not reclaim a done job.
	admission, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, 0)
	if err != nil {
		t.Fatalf("AdmitJob after done failed: %v", err)
	}
	if admission != store.AdmissionSkipDuplicate {
		t.Fatalf("expected done job to stay terminal, got %s", admission)
	}
}

func TestAdmitJobReadmitsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}
	if _, err := st.CompleteJob(ctx, "videos/ep01.mp4", "etag-1", store.JobFailed, "transcode exploded"); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	admission, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter)
	if err != nil {
		t.Fatalf("re-admit failed: %v", err)
	}
	if admission != store.AdmissionProcess {
		t.Fatalf("expected failed job to be re-admitted, got %s", admission)
	}

	job, err := st.GetJob(ctx, "videos/ep01.mp4", "etag-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != store.JobProcessing {
		t.Fatalf("expected processing after re-admission, got %s", job.Status)
	}
	if job.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", job.RetryCount)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", job.ErrorMessage)
	}
}

func TestAdmitJobReclaimsStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}

	// A staleness window in the past treats the processing row as abandoned.
	admission, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, -time.Minute)
	if err != nil {
		t.Fatalf("stale re-admit failed: %v", err)
	}
	if admission != store.AdmissionProcess {
		t.Fatalf("expected stale processing job to be reclaimed, got %s", admission)
	}

	job, err := st.GetJob(ctx, "videos/ep01.mp4", "etag-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.RetryCount != 1 {
		t.Fatalf("expected retry count 1 after reclaim, got %d", job.RetryCount)
	}
}

func TestAdmitJobConcurrentDuplicatesElectOneWinner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const deliveries = 8

	var wg sync.WaitGroup
	admissions := make([]store.Admission, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			admissions[slot], errs[slot] = st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < deliveries; i++ {
		if errs[i] != nil {
			t.Fatalf("AdmitJob %d failed: %v", i, errs[i])
		}
		if admissions[i] == store.AdmissionProcess {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestAdmitJobDistinctEtagsAreDistinctJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter)
	if err != nil {
		t.Fatalf("AdmitJob etag-1 failed: %v", err)
	}
	second, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-2", "uid-2", nil, jobStaleAfter)
	if err != nil {
		t.Fatalf("AdmitJob etag-2 failed: %v", err)
	}
	if first != store.AdmissionProcess || second != store.AdmissionProcess {
		t.Fatalf("expected both object versions admitted, got %s and %s", first, second)
	}
}

func TestCompleteJobIgnoresNonProcessingRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}
	if _, err := st.CompleteJob(ctx, "videos/ep01.mp4", "etag-1", store.JobDone, ""); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	transitioned, err := st.CompleteJob(ctx, "videos/ep01.mp4", "etag-1", store.JobFailed, "late failure")
	if err != nil {
		t.Fatalf("second CompleteJob failed: %v", err)
	}
	if transitioned {
		t.Fatal("expected terminal row to be left untouched")
	}

	job, err := st.GetJob(ctx, "videos/ep01.mp4", "etag-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != store.JobDone {
		t.Fatalf("expected done to stick, got %s", job.Status)
	}
}

func TestCompleteJobRejectsNonTerminalStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.CompleteJob(context.Background(), "videos/ep01.mp4", "etag-1", store.JobProcessing, ""); err == nil {
		t.Fatal("expected error for non-terminal outcome")
	}
}

func TestListJobsAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keys := []struct {
		object string
		etag   string
	}{
		{"videos/a.mp4", "etag-a"},
		{"videos/b.mp4", "etag-b"},
		{"videos/c.mp4", "etag-c"},
	}
	for _, key := range keys {
		if _, err := st.AdmitJob(ctx, key.object, key.etag, "uid-"+key.etag, nil, jobStaleAfter); err != nil {
			t.Fatalf("AdmitJob %s failed: %v", key.object, err)
		}
	}
	if _, err := st.CompleteJob(ctx, "videos/a.mp4", "etag-a", store.JobDone, ""); err != nil {
		t.Fatalf("CompleteJob done failed: %v", err)
	}
	if _, err := st.CompleteJob(ctx, "videos/b.mp4", "etag-b", store.JobFailed, "asr timeout"); err != nil {
		t.Fatalf("CompleteJob failed failed: %v", err)
	}

	failed, err := st.ListJobs(ctx, store.JobFailed)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ObjectKey != "videos/b.mp4" {
		t.Fatalf("unexpected failed jobs: %#v", failed)
	}
	if failed[0].ErrorMessage != "asr timeout" {
		t.Fatalf("expected error message preserved, got %q", failed[0].ErrorMessage)
	}

	all, err := st.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Done != 1 || stats.Failed != 1 || stats.Processing != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSetJobVideoID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := st.AdmitJob(ctx, "videos/ep01.mp4", "etag-1", "uid-1", nil, jobStaleAfter); err != nil {
		t.Fatalf("AdmitJob failed: %v", err)
	}
	videoID := testsupport.MustEnsureVideo(t, st, "uid-1", "Episode 1", 120)
	if err := st.SetJobVideoID(ctx, "videos/ep01.mp4", "etag-1", videoID); err != nil {
		t.Fatalf("SetJobVideoID failed: %v", err)
	}

	job, err := st.GetJob(ctx, "videos/ep01.mp4", "etag-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.VideoID == nil || *job.VideoID != videoID {
		t.Fatalf("expected video id %d on job, got %v", videoID, job.VideoID)
	}
}
