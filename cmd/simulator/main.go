// Command simulator emulates a sensor device, posting synthetic
// readings to an AirSense server at a fixed interval. Useful for
// exercising a local server without real hardware.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nesarahmed/airsense/pkg/sdk"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/sensor-data", "ingestion endpoint")
	apiKey := flag.String("api-key", os.Getenv("API_KEY"), "API key (defaults to API_KEY env var)")
	interval := flag.Duration("interval", 5*time.Second, "time between readings")
	flag.Parse()

	client := sdk.New(*endpoint, *apiKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down simulator...")
		cancel()
	}()

	log.Printf("Simulator posting to %s every %v", *endpoint, *interval)

	// Random walk around plausible indoor conditions. Readings repeat
	// unchanged now and then, like a real sensor in a quiet room.
	temp := 24.0
	humidity := 55.0
	gas := 80.0

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Simulator stopped")
			return
		case <-ticker.C:
			if rand.Float64() > 0.2 {
				temp = clamp(temp+rand.NormFloat64()*0.3, 10, 45)
				humidity = clamp(humidity+rand.NormFloat64()*1.5, 20, 95)
				gas = clamp(gas+rand.NormFloat64()*15, 30, 900)
			}

			reading := sdk.Reading{
				Temperature:   round1(temp),
				Humidity:      round1(humidity),
				GasValue:      math.Round(gas),
				SoundDetected: rand.Float64() < 0.1,
			}

			result, err := client.Submit(ctx, reading)
			if err != nil {
				log.Printf("Submit failed: %v", err)
				continue
			}
			log.Printf("Submitted %.1f°C %.1f%% gas=%.0f sound=%v (buffer: %d entries)",
				reading.Temperature, reading.Humidity, reading.GasValue,
				reading.SoundDetected, len(result.Realtime))
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
