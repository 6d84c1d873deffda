// Package indicators provides technical analysis indicators for trading
package indicators
