package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"git.fiblab.net/sim/syncer/v3"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/adaptive-junction/task"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
)

var (
	// 任务名，用于日志
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 本程序监听的RPC地址，显示层通过该地址读取快照与发送控制指令，设置为空则不提供RPC服务
	listenAddr = flag.String("listen", ":51102", "RPC listening address (empty means no RPC)")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "junction-sim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置，均未指定时使用默认配置
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("%v", err)
	}
	if out, err := config.Dump(rc.All); err == nil {
		log.Infof("config:\n%s", out)
	} else {
		log.Warnf("failed to dump config: %v", err)
	}

	var sidecar *syncer.Sidecar
	if *listenAddr != "" {
		// 独立部署模式，不连接syncer
		sidecar = syncer.NewSidecar(task.SelfName, *listenAddr, "")
	}
	t := task.NewContext(*job, rc, sidecar, sidecar != nil)

	// Ctrl+C与窗口关闭等价于停止指令
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		t.Junction().Stop()
	}()

	t.Run(ctx)
}
