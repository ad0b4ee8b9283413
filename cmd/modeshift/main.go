package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	log "github.com/sirupsen/logrus"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/rapidmidiex/modeshift"
	"github.com/rapidmidiex/modeshift/config"
	"github.com/rapidmidiex/modeshift/liveport"
	"github.com/rapidmidiex/modeshift/pickerui"
	"github.com/rapidmidiex/modeshift/preview"
	"github.com/rapidmidiex/modeshift/relay"
	"github.com/rapidmidiex/modeshift/smfio"
	"github.com/rapidmidiex/modeshift/transform"
)

const usage = `usage: modeshift <command> [flags]

commands:
  tui       pick a file and keys interactively (default)
  remap     remap a MIDI file
  scales    list the scale table
  relay     remap MIDI messages from a jam server
  live      remap a MIDI input port onto an output port
  preview   remap a MIDI file and render it to WAV
`

func main() {
	cmd, args := "tui", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		bail(err)
	}

	switch cmd {
	case "tui":
		err = runTUI(cfg, args)
	case "remap":
		err = runRemap(cfg, args)
	case "scales":
		err = runScales(cfg, args)
	case "relay":
		err = runRelay(cfg, args)
	case "live":
		err = runLive(cfg, args)
	case "preview":
		err = runPreview(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	bail(err)
}

// keyFlags registers the flags shared by every command that remaps.
func keyFlags(fs *flag.FlagSet, cfg *config.Config) (verbose *bool) {
	fs.StringVar(&cfg.ScaleTable, "scales", cfg.ScaleTable, "scale table CSV (empty for the built-in modes)")
	fs.StringVar(&cfg.From.Scale, "from", cfg.From.Scale, "origin scale")
	fs.StringVar(&cfg.From.Root, "from-root", cfg.From.Root, "origin root")
	fs.StringVar(&cfg.To.Scale, "to", cfg.To.Scale, "target scale")
	fs.StringVar(&cfg.To.Root, "to-root", cfg.To.Root, "target root")
	fs.BoolVar(&cfg.NoteOff, "note-off", cfg.NoteOff, "also remap note-off events")
	return fs.Bool("v", false, "debug logging")
}

func parse(fs *flag.FlagSet, args []string, verbose *bool) {
	_ = fs.Parse(args)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func runTUI(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	parse(fs, args, keyFlags(fs, cfg))
	return modeshift.Run(cfg)
}

func runRemap(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("remap", flag.ExitOnError)
	out := fs.String("o", "", "output file (default <Scale>_<root>_<input> next to the input)")
	parse(fs, args, keyFlags(fs, cfg))
	if fs.NArg() != 1 {
		return fmt.Errorf("remap: expected one MIDI file, got %d", fs.NArg())
	}

	r, err := cfg.Remapper()
	if err != nil {
		return err
	}
	in := fs.Arg(0)
	if *out == "" {
		*out = smfio.OutputName(in, r.Target())
	}
	stats, err := smfio.RemapPath(in, *out, r)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s, %d of %d notes moved\n", *out, r.Describe(), stats.Changed, stats.Notes)
	return nil
}

func runScales(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scales", flag.ExitOnError)
	mapping := fs.Bool("map", false, "also print where each note of -from/-from-root lands")
	parse(fs, args, keyFlags(fs, cfg))

	table, err := cfg.Table()
	if err != nil {
		return err
	}
	for _, name := range table.Names() {
		s, _ := table.Lookup(name)
		fmt.Println(s)
	}
	if !*mapping {
		return nil
	}

	r, err := cfg.Remapper()
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", r.Describe())
	for _, row := range pickerui.MappingRows(r) {
		fmt.Printf("  %-3s %-4s -> %s\n", row[0], row[1], row[2])
	}
	return nil
}

func runRelay(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ExitOnError)
	fs.StringVar(&cfg.Relay.Upstream, "upstream", cfg.Relay.Upstream, "jam server websocket URL")
	fs.StringVar(&cfg.Relay.Listen, "listen", cfg.Relay.Listen, "address to accept clients on")
	quiet := fs.Bool("quiet", false, "do not announce the remap to clients")
	cfg.NoteOff = true
	parse(fs, args, keyFlags(fs, cfg))

	r, err := cfg.Remapper()
	if err != nil {
		return err
	}
	rl := relay.New(r, relay.Options{Upstream: cfg.Relay.Upstream, Announce: !*quiet})
	log.WithFields(log.Fields{
		"listen":   cfg.Relay.Listen,
		"upstream": cfg.Relay.Upstream,
		"remap":    r.Describe(),
	}).Info("relay listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	srv := &http.Server{
		Addr:        cfg.Relay.Listen,
		Handler:     rl,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runLive(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	in := fs.String("in", "", "input port name (substring)")
	out := fs.String("out", "", "output port name (substring)")
	list := fs.Bool("list", false, "list MIDI ports and exit")
	cfg.NoteOff = true
	parse(fs, args, keyFlags(fs, cfg))
	defer liveport.Close()

	if *list {
		ins, outs := liveport.Ports()
		fmt.Println("inputs:")
		for _, p := range ins {
			fmt.Println("  " + p)
		}
		fmt.Println("outputs:")
		for _, p := range outs {
			fmt.Println("  " + p)
		}
		return nil
	}

	r, err := cfg.Remapper()
	if err != nil {
		return err
	}
	b, err := liveport.Open(*in, *out, r)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return b.Run(ctx)
}

func runPreview(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	fs.StringVar(&cfg.SoundFont, "sf2", cfg.SoundFont, "SoundFont used to render")
	out := fs.String("o", "", "WAV file to write (default <input>.wav)")
	rate := fs.Int("rate", preview.DefaultSampleRate, "sample rate")
	tail := fs.Duration("tail", 2*time.Second, "silence rendered after the last note")
	original := fs.Bool("original", false, "render the file without remapping")
	play := fs.Bool("play", false, "play through the speakers instead of writing a WAV")
	parse(fs, args, keyFlags(fs, cfg))
	if fs.NArg() != 1 {
		return fmt.Errorf("preview: expected one MIDI file, got %d", fs.NArg())
	}
	if cfg.SoundFont == "" {
		return fmt.Errorf("preview: no sound font, pass -sf2")
	}

	in := fs.Arg(0)
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	if !*original {
		var r *transform.Remapper
		if r, err = cfg.Remapper(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := smfio.RemapFile(bytes.NewReader(data), &buf, r); err != nil {
			return err
		}
		data = buf.Bytes()
	}

	sf2, err := os.Open(cfg.SoundFont)
	if err != nil {
		return err
	}
	defer sf2.Close()
	renderer, err := preview.NewRenderer(sf2, preview.Options{SampleRate: *rate, Tail: *tail})
	if err != nil {
		return err
	}

	if *play {
		s, err := renderer.Render(data)
		if err != nil {
			return err
		}
		return playback(s, renderer.Format())
	}

	if *out == "" {
		*out = strings.TrimSuffix(in, ".mid") + ".wav"
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := renderer.WriteWAV(data, f); err != nil {
		return err
	}
	log.WithField("out", *out).Info("preview written")
	return nil
}

func playback(s *preview.Streamer, format beep.Format) error {
	// Bigger -> less CPU, slower response
	bufLen := format.SampleRate.N(time.Millisecond * 20)
	if err := speaker.Init(format.SampleRate, bufLen); err != nil {
		return err
	}
	defer speaker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.Err()
}

func bail(err error) {
	if err != nil {
		fmt.Printf("Uh oh, there was an error: %v\n", err)
		os.Exit(1)
	}
}
