package cluster

import (
	"math"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

const noiseLabel = -1

// dbscan labels points by density clustering in degree space. A point is a
// core point when at least minSamples points, itself included, fall within
// eps of it. Points unreachable from any core point are labeled noiseLabel.
func dbscan(points []domain.Geo, epsDeg float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = noiseLabel
	}

	visited := make([]bool, len(points))
	cluster := 0

	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, epsDeg)
		if len(neighbors) < minSamples {
			continue
		}

		labels[i] = cluster
		// Expand the cluster breadth-first through density-reachable points.
		for qi := 0; qi < len(neighbors); qi++ {
			j := neighbors[qi]
			if labels[j] == noiseLabel {
				labels[j] = cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			more := regionQuery(points, j, epsDeg)
			if len(more) >= minSamples {
				neighbors = append(neighbors, more...)
			}
		}
		cluster++
	}

	return labels
}

func regionQuery(points []domain.Geo, i int, epsDeg float64) []int {
	var neighbors []int
	for j := range points {
		dlat := points[j].Lat - points[i].Lat
		dlon := points[j].Lon - points[i].Lon
		if math.Sqrt(dlat*dlat+dlon*dlon) <= epsDeg {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
