package main

import "github.com/architeacher/device-inventory/internal/runtime"

func main() {
	runtime.New().Run()
}
