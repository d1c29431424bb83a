package main

import (
	"github.com/shouni/character-forge/cmd"
)

// main はアプリケーションの唯一のエントリーポイントなのだ！
func main() {
	cmd.Execute()
}
