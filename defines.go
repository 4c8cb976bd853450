package main

const (
	VERSION      = "1.0.0"
	DEFAULT_CONF = "cafe.yaml"
)
