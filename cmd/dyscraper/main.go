// Command dyscraper downloads the videos of Douyin profiles.
package main

func main() {
	Execute()
}
