package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/fumitoshi0524/hogwildnet/hogwild"
	"github.com/fumitoshi0524/hogwildnet/loss"
	"github.com/fumitoshi0524/hogwildnet/nn"
	"github.com/fumitoshi0524/hogwildnet/optim"
	"github.com/fumitoshi0524/hogwildnet/tensor"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	cfg := hogwild.DefaultConfig()
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent training workers")
	flag.IntVar(&cfg.StepsPerWorker, "steps", 200, "training steps per worker")
	flag.IntVar(&cfg.ResampleEvery, "resample", 4, "redraw the shared dropout mask every N steps (0 keeps it fixed)")
	flag.IntVar(&cfg.LogEvery, "log-every", 0, "log progress every N steps")
	samples := flag.Int("samples", 256, "number of training samples")
	hiddenUnits := flag.Int("hidden", 32, "hidden layer width")
	lr := flag.Float64("lr", 0.05, "learning rate")
	p := flag.Float64("p", 0.2, "dropout probability")
	shareMask := flag.Bool("share-mask", true, "share one dropout mask across workers")
	seed := flag.Uint64("seed", 1, "random seed")
	progress := flag.Bool("progress", true, "show a progress bar")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()
	if *samples < 2 {
		log.Fatal().Int("samples", *samples).Msg("need at least two samples")
	}
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	stream := tensor.NewRandomStream(*seed)
	xs, ys := dataset(stream, *samples)

	in := nn.NewInput(-1, 1)
	hidden := nn.NewLinearFromStream(stream, 1, *hiddenUnits, true)
	dropOpts := []nn.DropoutOption{nn.WithP(*p), nn.WithSeed(stream.Uint64())}
	var shared *nn.SharedMask
	if *shareMask {
		var err error
		shared, err = nn.NewSharedMask(*p, stream.Fork(), 0)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create shared mask")
		}
		dropOpts = append(dropOpts, nn.WithMaskSource(shared))
	}
	drop, err := nn.NewDropoutLayer(hidden, dropOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create dropout layer")
	}
	model := nn.NewSequential(in, hidden, nn.Tanh(), drop, nn.NewLinearFromStream(stream, *hiddenUnits, 1, true))
	params := model.Parameters()

	manager, err := hogwild.NewManager(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if shared != nil {
		manager.ShareMasks(shared)
	}

	log.Info().Float64("loss", evaluate(model, xs, ys)).Msg("before training")

	var bar *progressbar.ProgressBar
	if *progress {
		bar = progressbar.NewOptions(cfg.TotalSteps(),
			progressbar.OptionSetDescription("training"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("steps"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = manager.Run(ctx, func(ctx context.Context, w *hogwild.Worker) error {
		var grads []*tensor.Tensor
		if err := w.Read(func() error {
			pred, err := model.Forward(xs)
			if err != nil {
				return err
			}
			l, err := loss.MSE(pred, ys)
			if err != nil {
				return err
			}
			grads, err = optim.GetOrComputeGrads(optim.Loss(l), params)
			return err
		}); err != nil {
			return err
		}
		if err := w.SGD(grads, params, *lr); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		return nil
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	evt := log.Info().Float64("loss", evaluate(model, xs, ys)).Int64("steps", manager.Steps())
	if shared != nil {
		evt = evt.Uint64("mask_generations", shared.Generation())
	}
	evt.Msg("after training")
}

// dataset samples y = sin(3x) + 0.5x with x uniform in [-1, 1].
func dataset(stream *tensor.RandomStream, n int) (*tensor.Tensor, *tensor.Tensor) {
	noise := stream.Normal(n).Data()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = -1 + 2*float64(i)/float64(n-1)
		ys[i] = math.Sin(3*xs[i]) + 0.5*xs[i] + 0.05*noise[i]
	}
	return tensor.MustNew(xs, n, 1), tensor.MustNew(ys, n, 1)
}

func evaluate(model *nn.Sequential, xs, ys *tensor.Tensor) float64 {
	model.Eval()
	defer model.Train()
	pred, err := model.Forward(xs)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
	l, err := loss.MSE(pred, ys)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
	v, _ := l.Item()
	return v
}
