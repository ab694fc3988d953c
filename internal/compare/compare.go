// Package compare runs the per-channel ORB similarity pipeline on two
// images and renders the comparison composite.
package compare

import (
	"context"
	"fmt"
	"image"
	"sync"

	"orbsim/internal/alignment"
	"orbsim/internal/config"
	"orbsim/internal/features"
	orbimage "orbsim/internal/image"
	"orbsim/internal/logging"
	"orbsim/internal/match"
	"orbsim/internal/render"
	"orbsim/internal/similarity"
	"orbsim/pkg/geometry"

	"github.com/rs/zerolog"
)

// Comparer compares image pairs. It holds no per-comparison state and is
// safe for concurrent use when its Detector is.
type Comparer struct {
	cfg      config.Config
	detector features.Detector
	logger   zerolog.Logger
}

// New creates a Comparer. A nil detector selects the pure Go ORB built from
// cfg.
func New(cfg config.Config, detector features.Detector, logger zerolog.Logger) (*Comparer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		orb, err := features.NewORB(cfg.ORB())
		if err != nil {
			return nil, fmt.Errorf("create detector: %w", err)
		}
		detector = orb
	}
	return &Comparer{
		cfg:      cfg,
		detector: detector,
		logger:   logging.Component(logger, "compare"),
	}, nil
}

// Config returns the configuration the Comparer was built with.
func (c *Comparer) Config() config.Config {
	return c.cfg
}

// ComparePaths loads both images and compares them. When either image
// cannot be loaded the returned error wraps image.ErrLoad and the result
// carries OutcomeLoadFailure with no composite.
func (c *Comparer) ComparePaths(ctx context.Context, path1, path2 string) (*Result, error) {
	src1, err := orbimage.Load(path1)
	if err != nil {
		return &Result{Outcome: OutcomeLoadFailure}, err
	}
	src2, err := orbimage.Load(path2)
	if err != nil {
		return &Result{Outcome: OutcomeLoadFailure}, err
	}

	c.logger.Debug().
		Str("image1", path1).Str("format1", src1.Format).
		Int("width1", src1.Width()).Int("height1", src1.Height()).
		Str("image2", path2).Str("format2", src2.Format).
		Int("width2", src2.Width()).Int("height2", src2.Height()).
		Msg("images loaded")

	return c.Compare(ctx, src1.Image, src2.Image)
}

// Compare computes the similarity of img1 to img2. Degenerate inputs such
// as blank images are reported as OutcomeNoResult, never as an error.
func (c *Comparer) Compare(ctx context.Context, img1, img2 image.Image) (*Result, error) {
	if img1 == nil || img2 == nil {
		return &Result{Outcome: OutcomeNoResult}, nil
	}

	order := c.cfg.Channels()
	channels1 := orbimage.Split(img1, order)
	channels2 := orbimage.Split(img2, order)

	results, err := c.processChannels(ctx, order, channels1, channels2)
	if err != nil {
		return nil, err
	}

	res := reduce(results)
	res.Outline = projectedOutline(results, img1.Bounds())
	if res.Outline != nil {
		box := geometry.BoundingBox(res.Outline)
		c.logger.Debug().
			Float64("area", geometry.PolygonArea(res.Outline)).
			Float64("width", box.Width()).
			Float64("height", box.Height()).
			Msg("outline projected")
	}
	if !res.Score.Determinable {
		c.logger.Info().
			Int("keypoints", res.Score.TotalKeypoints).
			Int("inliers", res.Score.TotalInliers).
			Msg("similarity undeterminable")
		res.Outcome = OutcomeNoResult
		return res, nil
	}

	opts := c.cfg.Render()
	if c.cfg.Caption {
		opts.Caption = fmt.Sprintf("similarity %s", res.Score)
	}
	if c.cfg.DrawOutline {
		opts.Outline = res.Outline
	}
	res.Composite = render.Render(img1, img2, res.Keypoints1, res.Keypoints2, res.Inliers, opts)

	c.logger.Info().
		Float64("similarity", res.Score.Percent).
		Int("inliers", res.Score.TotalInliers).
		Int("keypoints", res.Score.TotalKeypoints).
		Msg("comparison complete")
	return res, nil
}

// processChannels runs every channel, concurrently when configured. The
// returned slice is in channel order regardless of completion order.
func (c *Comparer) processChannels(ctx context.Context, order orbimage.ChannelOrder, grids1, grids2 []*image.Gray) ([]ChannelResult, error) {
	results := make([]ChannelResult, len(order))
	errs := make([]error, len(order))

	if !c.cfg.Parallel {
		for i, ch := range order {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i], errs[i] = c.processChannel(ch, grids1[i], grids2[i])
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return results, nil
	}

	var wg sync.WaitGroup
	for i, ch := range order {
		wg.Add(1)
		go func(i int, ch orbimage.Channel) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = c.processChannel(ch, grids1[i], grids2[i])
		}(i, ch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// processChannel extracts, matches and filters one channel.
func (c *Comparer) processChannel(ch orbimage.Channel, grid1, grid2 *image.Gray) (ChannelResult, error) {
	log := c.logger.With().Stringer("channel", ch).Logger()
	res := ChannelResult{Channel: ch, Inliers: []match.Match{}}

	kp1, desc1, err := c.detector.Detect(grid1, c.cfg.MaxFeatures)
	if err != nil {
		return res, fmt.Errorf("detect %s channel of image 1: %w", ch, err)
	}
	kp2, desc2, err := c.detector.Detect(grid2, c.cfg.MaxFeatures)
	if err != nil {
		return res, fmt.Errorf("detect %s channel of image 2: %w", ch, err)
	}

	if len(desc1) == 0 || len(desc2) == 0 {
		log.Debug().Int("keypoints1", len(kp1)).Int("keypoints2", len(kp2)).Msg("channel skipped, no descriptors")
		res.Skipped = true
		return res, nil
	}
	res.Keypoints1 = kp1
	res.Keypoints2 = kp2

	matches := match.BruteForce(desc1, desc2)
	res.Matches = len(matches)

	filtered := alignment.FilterMatches(kp1, kp2, matches, c.cfg.RANSAC())
	res.Inliers = filtered.Inliers
	res.Homography = filtered.Homography
	res.Found = filtered.Found

	event := log.Debug().
		Int("keypoints1", len(kp1)).
		Int("keypoints2", len(kp2)).
		Int("matches", len(matches)).
		Bool("unique", match.Unique(matches)).
		Int("inliers", filtered.Count()).
		Bool("homography", filtered.Found)
	if filtered.Found {
		src, dst := inlierPoints(kp1, kp2, filtered.Inliers)
		event = event.Float64("reprojection_error", alignment.ReprojectionError(src, dst, filtered.Homography))
	}
	event.Msg("channel processed")
	return res, nil
}

// inlierPoints returns the keypoint positions of each inlier pair.
func inlierPoints(kp1, kp2 []features.Keypoint, inliers []match.Match) (src, dst []geometry.Point2D) {
	src = make([]geometry.Point2D, len(inliers))
	dst = make([]geometry.Point2D, len(inliers))
	for i, m := range inliers {
		src[i] = kp1[m.QueryIdx].Pt
		dst[i] = kp2[m.TrainIdx].Pt
	}
	return src, dst
}

// reduce concatenates channel results in order, rebasing inlier indices
// onto the concatenated keypoint slices, and aggregates the score.
func reduce(channels []ChannelResult) *Result {
	res := &Result{
		Channels:   channels,
		Keypoints1: []features.Keypoint{},
		Keypoints2: []features.Keypoint{},
		Inliers:    []match.Match{},
	}

	stats := make([]similarity.ChannelStats, 0, len(channels))
	for _, ch := range channels {
		offset1, offset2 := len(res.Keypoints1), len(res.Keypoints2)
		for _, m := range ch.Inliers {
			res.Inliers = append(res.Inliers, match.Match{
				QueryIdx: m.QueryIdx + offset1,
				TrainIdx: m.TrainIdx + offset2,
				Distance: m.Distance,
			})
		}
		res.Keypoints1 = append(res.Keypoints1, ch.Keypoints1...)
		res.Keypoints2 = append(res.Keypoints2, ch.Keypoints2...)
		stats = append(stats, ch.Stats())
	}
	match.SortByDistance(res.Inliers)

	res.Score = similarity.Aggregate(stats)
	return res
}

// projectedOutline maps the border of image 1 through the homography of the
// channel with the most inliers. Folded or unbounded projections yield nil.
func projectedOutline(channels []ChannelResult, bounds image.Rectangle) []geometry.Point2D {
	best := -1
	for i, ch := range channels {
		if ch.Found && (best < 0 || len(ch.Inliers) > len(channels[best].Inliers)) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	quad, ok := geometry.ProjectQuad(channels[best].Homography, float64(bounds.Dx()), float64(bounds.Dy()))
	if !ok || !geometry.IsConvex(quad) {
		return nil
	}
	return quad
}
