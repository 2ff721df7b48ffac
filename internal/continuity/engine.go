package continuity

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// VideoGenerator is the capability interface for the generation backend.
// Swapping backends must not change the engine.
type VideoGenerator interface {
	Submit(ctx context.Context, prompt string, refs []Reference, durationSeconds int, seed *int64) ([]byte, error)
}

// FrameExtractor pulls the trailing frame of a video artifact. Best-effort:
// callers treat failure as degraded continuity, not a fatal fault.
type FrameExtractor interface {
	ExtractLastFrame(ctx context.Context, videoPath, outputPath string) error
}

// EmbeddingQueue enqueues asynchronous identity extraction for an anchor.
// The extraction has its own failure domain, decoupled from render jobs.
type EmbeddingQueue interface {
	EnqueueExtraction(ctx context.Context, characterID string) error
}

// GenerateRequest describes one segment generation.
type GenerateRequest struct {
	ProjectID  string
	SessionID  string
	BasePrompt string
	// Characters proposed for this shot. When non-empty, the resolved set
	// replaces the project's active characters.
	Characters      []model.ShotCharacter
	DurationSeconds int
	CameraType      string
	ShotSummary     string
	Seed            *int64
}

// GenerateResult carries the artifact plus what was sent to the backend.
type GenerateResult struct {
	VideoBytes      []byte
	LocalPath       string
	Prompt          string
	References      []Reference
	NewCharacterIDs []string
}

// Engine orchestrates anchor resolution, reference assembly, prompt
// composition, the backend call, and the post-shot state update.
type Engine struct {
	states     store.ContinuityStore
	characters store.CharacterStore
	resolver   *AnchorResolver
	backend    VideoGenerator
	frames     FrameExtractor
	embeddings EmbeddingQueue
	mediaRoot  string
	fileExists func(string) bool
}

func NewEngine(states store.ContinuityStore, characters store.CharacterStore, backend VideoGenerator, frames FrameExtractor, embeddings EmbeddingQueue, mediaRoot string) *Engine {
	return &Engine{
		states:     states,
		characters: characters,
		resolver:   NewAnchorResolver(characters),
		backend:    backend,
		frames:     frames,
		embeddings: embeddings,
		mediaRoot:  mediaRoot,
		fileExists: fileExists,
	}
}

// GenerateSegment runs the full continuity-aware pipeline for one shot and
// returns the raw video bytes. Durable artifact storage is the caller's
// concern; the local copy under the media root backs frame extraction.
func (e *Engine) GenerateSegment(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	state, err := e.states.GetOrCreateState(ctx, req.ProjectID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load continuity state: %w", err)
	}

	anchors, resolution, err := e.resolveAnchors(ctx, state, req.Characters)
	if err != nil {
		return nil, err
	}

	refs := BuildReferenceSet(anchors, state, e.fileExists)

	prompt := ComposePrompt(PromptInput{
		BasePrompt: e.enrichBasePrompt(req.BasePrompt, anchors),
		State:      state,
		Characters: anchors,
	})

	videoBytes, err := e.backend.Submit(ctx, prompt, refs, req.DurationSeconds, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}

	localPath, err := e.saveArtifact(state.SessionID, videoBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to save generated artifact: %w", err)
	}

	activeIDs := characterIDs(anchors)
	newIDs := e.anchorNewCharacters(ctx, req.ProjectID, resolution.New, localPath, state)
	activeIDs = append(activeIDs, newIDs...)

	// Flow policy: a freshly minted anchor frame doubles as the flow
	// reference for the next shot; otherwise extract the trailing frame.
	if len(newIDs) == 0 {
		e.updateFlowFrame(ctx, state, localPath)
	}

	if len(req.Characters) > 0 || len(newIDs) > 0 {
		state.ActiveCharacterIDs = activeIDs
	}

	e.updateTextContinuity(state, req, anchors)

	if err := e.states.UpdateState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist continuity state: %w", err)
	}

	return &GenerateResult{
		VideoBytes:      videoBytes,
		LocalPath:       localPath,
		Prompt:          prompt,
		References:      refs,
		NewCharacterIDs: newIDs,
	}, nil
}

// resolveAnchors merges the shot's proposed characters with the project's
// active set. A non-empty proposal replaces the active set; an empty one
// falls back to the characters already active in state.
func (e *Engine) resolveAnchors(ctx context.Context, state *model.ContinuityState, proposed []model.ShotCharacter) ([]model.Character, *Resolution, error) {
	if len(proposed) > 0 {
		resolution, err := e.resolver.Resolve(ctx, state.ProjectID, proposed)
		if err != nil {
			return nil, nil, err
		}
		return resolution.Existing, resolution, nil
	}

	var anchors []model.Character
	for _, id := range state.ActiveCharacterIDs {
		char, err := e.characters.GetCharacter(ctx, id)
		if err != nil {
			// A vanished active character degrades to no anchor rather
			// than failing the shot.
			log.Printf("Active character %s not found, skipping anchor", id)
			continue
		}
		anchors = append(anchors, *char)
	}
	return anchors, &Resolution{Existing: anchors}, nil
}

func (e *Engine) enrichBasePrompt(base string, anchors []model.Character) string {
	return strings.TrimSpace(base) +
		"\nCharacters present (keep faces, outfits, and overall look consistent across all shots): " +
		SummarizeCharacters(anchors)
}

func (e *Engine) saveArtifact(sessionID string, videoBytes []byte) (string, error) {
	dir := filepath.Join(e.mediaRoot, "generated")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", sessionID, uuid.New().String()[:8]))
	if err := os.WriteFile(path, videoBytes, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// anchorNewCharacters mints anchors for never-seen characters from the
// generated artifact. Each failure is logged and skipped; a missing anchor
// only degrades continuity for later shots.
func (e *Engine) anchorNewCharacters(ctx context.Context, projectID string, newChars []model.ShotCharacter, videoPath string, state *model.ContinuityState) []string {
	var ids []string

	for _, sc := range newChars {
		anchorPath := e.anchorFramePath(videoPath, sc.Name)
		if err := e.frames.ExtractLastFrame(ctx, videoPath, anchorPath); err != nil {
			log.Printf("Failed to extract anchor frame for %q: %v", sc.Name, err)
			anchorPath = ""
		}

		char, err := e.resolver.CreateFromOutput(ctx, projectID, sc, anchorPath)
		if err != nil {
			log.Printf("Failed to anchor new character %q: %v", sc.Name, err)
			continue
		}
		ids = append(ids, char.ID)

		if char.RefImagePath != "" {
			state.LastFramePath = char.RefImagePath
			if err := e.embeddings.EnqueueExtraction(ctx, char.ID); err != nil {
				log.Printf("Failed to enqueue embedding extraction for %q: %v", sc.Name, err)
			}
		}
	}

	return ids
}

func (e *Engine) updateFlowFrame(ctx context.Context, state *model.ContinuityState, videoPath string) {
	dir := filepath.Join(e.mediaRoot, "continuity")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Failed to create continuity dir: %v", err)
		return
	}
	framePath := filepath.Join(dir, fmt.Sprintf("%s_last_frame.jpg", state.SessionID))

	if err := e.frames.ExtractLastFrame(ctx, videoPath, framePath); err != nil {
		log.Printf("Failed to extract flow frame: %v", err)
		return
	}
	state.LastFramePath = framePath
}

// updateTextContinuity advances the cross-shot text state after a render.
func (e *Engine) updateTextContinuity(state *model.ContinuityState, req GenerateRequest, anchors []model.Character) {
	state.ShotIndex++
	if req.CameraType != "" {
		state.LastCamera = req.CameraType
	}

	summary := req.ShotSummary
	if summary == "" {
		summary = req.BasePrompt
	}
	state.LastShotSummary = summary

	// Palette seeds once from the first shot's character colors.
	if len(state.GlobalPalette) == 0 {
		for _, c := range anchors {
			state.GlobalPalette = append(state.GlobalPalette, c.DominantColors...)
		}
	}

	if state.GlobalStyleHint == "" && summary != "" {
		state.GlobalStyleHint = "Match the mood and style implied by this description: " + truncate(summary, summaryHintLimit)
	}
}

// UpdateNarrativeFact overwrites one durable semantic fact by key.
func (e *Engine) UpdateNarrativeFact(ctx context.Context, projectID, sessionID, key, value string) (*model.ContinuityState, error) {
	state, err := e.states.GetOrCreateState(ctx, projectID, sessionID)
	if err != nil {
		return nil, err
	}
	state.NarrativeContext.Set(key, value)
	if err := e.states.UpdateState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetActiveCharacters replaces the active anchor set by name. Unknown names
// are skipped; the caller sees how many anchors are armed.
func (e *Engine) SetActiveCharacters(ctx context.Context, projectID, sessionID string, names []string) (*model.ContinuityState, int, error) {
	state, err := e.states.GetOrCreateState(ctx, projectID, sessionID)
	if err != nil {
		return nil, 0, err
	}

	var ids []string
	for _, name := range names {
		char, err := e.characters.GetCharacterByName(ctx, projectID, name)
		if err != nil {
			continue
		}
		ids = append(ids, char.ID)
	}

	state.ActiveCharacterIDs = ids
	if err := e.states.UpdateState(ctx, state); err != nil {
		return nil, 0, err
	}
	return state, len(ids), nil
}

func (e *Engine) anchorFramePath(videoPath, name string) string {
	dir := filepath.Join(e.mediaRoot, "characters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Failed to create characters dir: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	return filepath.Join(dir, fmt.Sprintf("%s_%s_anchor.jpg", base, slug))
}

func characterIDs(chars []model.Character) []string {
	ids := make([]string, 0, len(chars))
	for _, c := range chars {
		ids = append(ids, c.ID)
	}
	return ids
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
