package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// ChainState names the progress of a full processing chain.
type ChainState string

const (
	ChainFetching     ChainState = "FETCHING"
	ChainTranscribing ChainState = "TRANSCRIBING"
	ChainSummarizing  ChainState = "SUMMARIZING"
	ChainDone         ChainState = "DONE"
	ChainAborted      ChainState = "ABORTED"
)

type chainResultData struct {
	FinalState string `json:"final_state"`
	Seconds    int64  `json:"seconds"`
}

// ProcessChain runs fetch, transcribe, and summarize back to back for one
// video. The chain aborts at the first stage failure; stages inside a chain
// are never retried individually because a rerun of the whole chain is the
// recovery path.
func (p *Pipeline) ProcessChain(ctx context.Context, args queue.ProcessChainArgs, opts RunOptions) Result {
	started := time.Now()
	state := ChainFetching

	return p.runStage(ctx, queue.StageProcessChain, args.VideoID, opts, func(ctx context.Context) (any, error) {
		video, err := p.store.GetVideo(ctx, args.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			return nil, services.Wrap(services.ErrNotFound, "process_chain", "load video", "no video row", nil)
		}
		title := videoTitle(video.Title, video.ExternalID)
		if err := p.notifier.NotifyChainStarted(ctx, title); err != nil {
			p.logger.Warn("chain notification failed", "error", err)
		}

		stageOpts := RunOptions{Priority: opts.priority()}
		log := logging.WithContext(ctx, p.logger)

		if result := p.FetchAudio(ctx, queue.FetchAudioArgs{VideoID: video.ID, SourceURL: args.SourceURL}, stageOpts); result.Failed() {
			return nil, p.chainAbort(ctx, log, title, state, result)
		}

		state = ChainTranscribing
		if result := p.Transcribe(ctx, queue.TranscribeArgs{VideoID: video.ID}, stageOpts); result.Failed() {
			return nil, p.chainAbort(ctx, log, title, state, result)
		}

		state = ChainSummarizing
		if result := p.Summarize(ctx, queue.SummarizeArgs{VideoRef: video.ExternalID}, stageOpts); result.Failed() {
			return nil, p.chainAbort(ctx, log, title, state, result)
		}

		state = ChainDone
		if err := p.notifier.NotifyChainCompleted(ctx, title, time.Since(started)); err != nil {
			p.logger.Warn("chain notification failed", "error", err)
		}
		return chainResultData{FinalState: string(state), Seconds: int64(time.Since(started).Seconds())}, nil
	})
}

func (p *Pipeline) chainAbort(ctx context.Context, log *slog.Logger, title string, state ChainState, result Result) error {
	log.Error("chain aborted",
		"chain_state", string(state),
		"failed_stage", string(result.Stage),
		"failure_kind", string(result.Kind),
		"error", result.Err)
	label := fmt.Sprintf("%s: chain aborted at %s", title, result.Stage)
	if err := p.notifier.NotifyError(ctx, result.Err, label); err != nil {
		log.Warn("chain notification failed", "error", err)
	}
	return result.Err
}
