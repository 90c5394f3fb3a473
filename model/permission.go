package model

type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// PermissionGeolocation is the key used in AntiFraudInfo.Permissions.
const PermissionGeolocation = "geolocation"
