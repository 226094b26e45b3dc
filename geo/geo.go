// Package geo 提供球面距离与边界盒的纯函数计算。
//
// 所有函数无状态、确定性，是引擎中唯一的数学叶子模块：
// 召回的粗过滤（BoundingBox）、过滤与打分的精确距离（Distance）都建立在它之上。
package geo

import (
	"math"

	"github.com/rushteam/acadmap/core"
)

// EarthRadiusKM 是地球平均半径（km）。
const EarthRadiusKM = 6371.0

// kmPerLatDegree 近似：纬度 1 度 ≈ 111 km。
const kmPerLatDegree = 111.0

// maxBoxLat 是边界盒计算允许的纬度绝对值上限。
// 纬度趋近 ±90° 时 cos(lat)→0，经度跨度会发散，这里显式钳制而不是继承未定义行为。
const maxBoxLat = 89.9

// Distance 计算两点间的大圆距离（Haversine 公式），单位 km。
// 纯函数：Distance(a,b) == Distance(b,a)，Distance(a,a) == 0。
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lon1Rad := radians(lon1)
	lat2Rad := radians(lat2)
	lon2Rad := radians(lon2)

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// DistanceBetween 是 Distance 的 GeoPoint 便捷形式。
func DistanceBetween(a, b core.GeoPoint) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox 返回以 (lat, lon) 为中心、radiusKM 为半径的外接经纬度矩形。
//
// 近似：纬度 1 度 ≈ 111 km，经度跨度按 cos(lat) 修正。
// 这只是粗过滤：矩形外接圆形，角部存在误报，调用方必须用 Distance 复核
// 后才能认定"在半径内"。
//
// 极区钳制：|lat| 超过 89.9° 时按 89.9° 计算 cos，并把结果矩形钳制回
// [-90,90] / [-180,180]，保证经度跨度不发散。
func BoundingBox(lat, lon, radiusKM float64) core.BoundingBox {
	latDelta := radiusKM / kmPerLatDegree

	cosLat := math.Abs(lat)
	if cosLat > maxBoxLat {
		cosLat = maxBoxLat
	}
	lonDelta := radiusKM / (kmPerLatDegree * math.Cos(radians(cosLat)))

	box := core.BoundingBox{
		LatMin: lat - latDelta,
		LatMax: lat + latDelta,
		LonMin: lon - lonDelta,
		LonMax: lon + lonDelta,
	}
	return clampBox(box)
}

func clampBox(b core.BoundingBox) core.BoundingBox {
	b.LatMin = math.Max(b.LatMin, -90)
	b.LatMax = math.Min(b.LatMax, 90)
	b.LonMin = math.Max(b.LonMin, -180)
	b.LonMax = math.Min(b.LonMax, 180)
	return b
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
