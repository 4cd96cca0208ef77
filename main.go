package main

import "bili-downloader/cmd"

func main() {
	cmd.Execute()
}
