package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はHTTP APIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMCP はstdio上のMCPサーバーモードで起動することを示す。
	CommandMCP Command = "mcp"
	// CommandSweep は期限切れセッションの掃除を1回実行して終了することを示す。
	CommandSweep Command = "sweep"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "mcp":
		return CommandMCP
	case "sweep":
		return CommandSweep
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
