package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/AnsBalin/skorche"
)

var (
	appName = "skorche-demo"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "run the download/unzip/split/batch/merge demo pipeline"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "dot-file",
			Value:  "demo.dot",
			EnvVar: "SKORCHE_DOT_FILE",
			Usage:  "path to write the rendered pipeline graph to",
		},
		cli.IntFlag{
			Name:   "metrics-port",
			Value:  0,
			EnvVar: "METRICS_PORT",
			Usage:  "if non-zero, serve Prometheus metrics on this port instead of exiting after Shutdown",
		},
	}
	app.Action = runMain
	return app
}

func runMain(appCtx *cli.Context) error {
	pipeline := skorche.New(logger, nil)

	downloadFile := skorche.NewTask(func(x any) (any, error) {
		return x.(string), nil
	}, skorche.WithTaskName("download_file"))

	unzipFile := skorche.NewTask(func(x any) (any, error) {
		return strings.TrimSuffix(x.(string), ".zip"), nil
	}, skorche.WithTaskName("unzip_file"))

	processImages := skorche.NewTask(func(x any) (any, error) {
		batch := x.([]any)
		out := make([]any, len(batch))
		for i, fname := range batch {
			out[i] = fmt.Sprintf("%s.processed", fname)
		}
		return out, nil
	}, skorche.WithTaskName("process_images"), skorche.WithMaxWorkers(2))

	processDoc := skorche.NewTask(func(x any) (any, error) {
		return fmt.Sprintf("%s.processed", x.(string)), nil
	}, skorche.WithTaskName("process_doc"))

	isImage := func(fname any) any {
		return strings.HasSuffix(fname.(string), ".jpg") || strings.HasSuffix(fname.(string), ".png")
	}

	passesFilter := func(fname any) bool {
		return !strings.HasPrefix(fname.(string), "_")
	}

	inputFiles := []any{"file1.zip", "file2.jpg.zip", "file3.zip"}
	queueIn := skorche.NewQueue(skorche.WithName("inputs"), skorche.WithFixedInputs(inputFiles))
	queueOut := skorche.NewQueue(skorche.WithName("outputs"))

	qUnzipped, err := pipeline.Chain([]*skorche.Task{downloadFile, unzipFile}, queueIn, nil)
	if err != nil {
		return err
	}

	qSplit, err := pipeline.Split(isImage, qUnzipped, []any{true, false})
	if err != nil {
		return err
	}
	qImg, qDoc := qSplit[true], qSplit[false]

	qImgBatch, err := pipeline.Batch(qImg, nil, 10, false)
	if err != nil {
		return err
	}
	qImgProcessed, err := pipeline.Map(processImages, qImgBatch, nil)
	if err != nil {
		return err
	}
	qImgOut, err := pipeline.Unbatch(qImgProcessed, nil)
	if err != nil {
		return err
	}

	qDocFiltered, err := pipeline.Filter(passesFilter, qDoc, nil)
	if err != nil {
		return err
	}
	qDocOut, err := pipeline.Map(processDoc, qDocFiltered, nil)
	if err != nil {
		return err
	}

	queueOut, err = pipeline.Merge([]*skorche.Queue{qImgOut, qDocOut}, queueOut)
	if err != nil {
		return err
	}

	if err := pipeline.Render(queueIn, appCtx.String("dot-file"), true); err != nil {
		return err
	}
	logger.WithField("file", appCtx.String("dot-file")).Info("wrote pipeline snapshot")

	var metricsErr chan error
	if port := appCtx.Int("metrics-port"); port != 0 {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		logger.WithField("port", port).Info("serving Prometheus metrics")
		metricsErr = make(chan error, 1)
		go func() {
			err := http.ListenAndServe(addr, nil)
			logger.WithError(err).Error("metrics server stopped")
			metricsErr <- err
		}()
	}

	if err := pipeline.Run(); err != nil {
		return err
	}
	if err := pipeline.Shutdown(); err != nil {
		return err
	}

	for _, x := range queueOut.Flush() {
		logger.WithField("result", x).Info("pipeline output")
	}
	if metricsErr != nil {
		// Keep serving metrics after Shutdown until the server stops.
		return <-metricsErr
	}
	return nil
}
