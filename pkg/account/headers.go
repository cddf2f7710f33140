package account

import "github.com/yaoshiu/pretty-der6y/pkg/infrastructure/auth"

const (
	mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_4_1 like Mac OSX) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Html15Plus/1.0 (Immersed/47) uni-app"
	appUserAgent    = "QJGX/%s (com.ledreamer.legym; build:30000868; iOS 16.0.2) Alamofire/5.8.0"
)

// Accept-Encoding is left to net/http so compressed bodies stay transparent.
func webHeaders(host, organization string) map[string]string {
	h := map[string]string{
		"Host":            host,
		"Accept":          "*/*",
		"Accept-Language": "zh-CN, zh-Hans;q=0.9",
		"Connection":      "keep-alive",
		"Content-Type":    "application/json",
		"User-Agent":      mobileUserAgent,
	}
	if organization != "" {
		h[auth.OrganizationHeader] = organization
	}
	return h
}

func appHeaders(host, userAgent string) map[string]string {
	return map[string]string{
		"Host":            host,
		"Accept":          "*/*",
		"Accept-Language": "zh-Hans-HK;q=1.0, zh-Hant-HK;q=0.9, yue-Hant-HK;q=0.8",
		"Connection":      "keep-alive",
		"Content-Type":    "application/json",
		"User-Agent":      userAgent,
	}
}
