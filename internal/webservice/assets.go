package webservice

import "github.com/bussinfr/viewer/internal/geo"

// Icon asset paths served next to the web service
const (
	StoppedBusIcon = "icons/stopped_bus.png"
	StopIcon       = "icons/stop.png"
	arrowDir       = "arrows/black/"
)

// AssetURL resolves an asset path against the service root
func (c *Client) AssetURL(path string) string {
	return c.baseURL + "/" + path
}

// ArrowURL returns the arrow icon URL for a bearing
func (c *Client) ArrowURL(bearing float64) string {
	return c.AssetURL(arrowDir + geo.ArrowIcon(bearing))
}
