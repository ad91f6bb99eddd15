package geo

import "math"

const tileSize = 256

// maxMercatorLat is the latitude at which Web Mercator is clipped.
const maxMercatorLat = 85.0511287798

// ViewportBounds computes the box visible in a widthPx x heightPx map
// centered on center at the given zoom, using 256px Web Mercator tiles.
func ViewportBounds(center Point, zoom int, widthPx, heightPx int) BBox {
	worldPx := tileSize * math.Exp2(float64(zoom))

	cx, cy := project(center, worldPx)
	halfW := float64(widthPx) / 2
	halfH := float64(heightPx) / 2

	sw := unproject(cx-halfW, cy+halfH, worldPx)
	ne := unproject(cx+halfW, cy-halfH, worldPx)

	return BBox{
		MinLat: sw.Lat,
		MinLon: math.Max(sw.Lon, -180),
		MaxLat: ne.Lat,
		MaxLon: math.Min(ne.Lon, 180),
	}
}

func project(p Point, worldPx float64) (float64, float64) {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	sinLat := math.Sin(lat * math.Pi / 180)

	x := (p.Lon + 180) / 360 * worldPx
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * worldPx
	return x, y
}

func unproject(x, y, worldPx float64) Point {
	y = math.Max(0, math.Min(worldPx, y))

	lon := x/worldPx*360 - 180
	n := math.Pi - 2*math.Pi*y/worldPx
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return Point{Lat: lat, Lon: lon}
}

// BoxAround returns the square of half-side rangeKm centred on center,
// measured along the meridian and the centre's parallel.
func BoxAround(center Point, rangeKm float64) BBox {
	kmPerDegLat := Distance(center.Lat, center.Lon, center.Lat+1, center.Lon)
	kmPerDegLon := Distance(center.Lat, center.Lon, center.Lat, center.Lon+1)

	dLat := rangeKm / kmPerDegLat
	dLon := 180.0
	if kmPerDegLon > 0 {
		dLon = math.Min(rangeKm/kmPerDegLon, 180)
	}

	return BBox{
		MinLat: math.Max(center.Lat-dLat, -90),
		MinLon: math.Max(center.Lon-dLon, -180),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MaxLon: math.Min(center.Lon+dLon, 180),
	}
}
