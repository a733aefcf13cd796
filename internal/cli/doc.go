// Package cli はteetimesのコマンドラインインターフェースを実装する。
//
// サブコマンドなしまたはserveでAPIサーバーを起動する。search / courses はサーバーを
// 起動せずに同じ集約処理を1回だけ実行し、結果をテキストまたはJSONで出力する。
// migrate / import-catalog はPostgreSQL上のコースカタログを管理し、healthcheckは
// distroless環境のDockerヘルスチェックから呼ばれる。
package cli
