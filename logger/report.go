package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net" //cloudwatch

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type sourceStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFetch   int64
	errorsGateway int64
	warnsFetch    int64
	warnsGateway  int64
	catalogReads  int64
	stockReads    int64
	queriesServed int64
	sources       sync.Map // map[string]*sourceStat
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") || strings.Contains(component, "scheduler") {
		atomic.AddInt64(&warnsFetch, 1)
	} else if strings.Contains(component, "gateway") || strings.Contains(component, "bot") {
		atomic.AddInt64(&warnsGateway, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") || strings.Contains(component, "scheduler") {
		atomic.AddInt64(&errorsFetch, 1)
	} else if strings.Contains(component, "gateway") || strings.Contains(component, "bot") {
		atomic.AddInt64(&errorsGateway, 1)
	}
}

func IncrementCatalogFetch(size int) {
	atomic.AddInt64(&catalogReads, 1)
	recordSource("torn_api", size)
}

func IncrementStockFetch(size int) {
	atomic.AddInt64(&stockReads, 1)
	recordSource("yata_api", size)
}

func IncrementQuery(size int) {
	atomic.AddInt64(&queriesServed, 1)
	recordSource("discord", size)
}

func RecordSourceMessage(name string, size int) {
	recordSource(name, size)
}

func recordSource(name string, size int) {
	v, _ := sources.LoadOrStore(name, &sourceStat{})
	ss := v.(*sourceStat)
	atomic.AddInt64(&ss.messages, 1)
	atomic.AddInt64(&ss.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and source statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	sourceData := map[string]map[string]int64{}
	sources.Range(func(k, v any) bool {
		name := k.(string)
		ss := v.(*sourceStat)
		sourceData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&ss.messages),
			"bytes":    atomic.LoadInt64(&ss.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_fetch":   atomic.LoadInt64(&errorsFetch),
		"errors_gateway": atomic.LoadInt64(&errorsGateway),
		"warns_fetch":    atomic.LoadInt64(&warnsFetch),
		"warns_gateway":  atomic.LoadInt64(&warnsGateway),
		"catalog_reads":  atomic.LoadInt64(&catalogReads),
		"stock_reads":    atomic.LoadInt64(&stockReads),
		"queries_served": atomic.LoadInt64(&queriesServed),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memStats.Used) / 1024 / 1024,
		"disk_mb":        int64(diskStats.Used) / 1024 / 1024,
		"sources":        sourceData,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Bot-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-ErrorsGateway"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_gateway"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-WarnsGateway"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_gateway"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-CatalogReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["catalog_reads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-StockReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["stock_reads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-QueriesServed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["queries_served"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("Bot-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range sourceData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Bot-SourceMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Bot-SourceBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
