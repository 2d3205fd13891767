package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages (info)
		"Opening %s":                       "%s を開いています",
		"Using backends: %s":               "使用するバックエンド: %s",
		"Processed %d frames in %v":        "%d フレームを %v で処理しました",
		"Report written to %s":             "レポートを %s に書き込みました",
		"Interrupted, shutting down...":    "中断されました。シャットダウン中...",

		// Source
		"Parsed MP4 with %d tracks (fragmented: %t)": "MP4 を解析しました: %d トラック (フラグメント: %t)",
		"Selected track %d (%s, %dx%d, %d samples)":  "トラック %d を選択しました (%s, %dx%d, %d サンプル)",

		// Processor
		"Selected %s track %dx%d (run %s)":         "%s トラック %dx%d を選択しました (実行 %s)",
		"No video track found, nothing to process": "映像トラックが見つかりません。処理を行いません",
		"Requesting surface %dx%d":                 "サーフェス %dx%d を要求しています",
		"Decoding with %s backend, frame cap %d":   "%s バックエンドでデコード中 (上限 %d フレーム)",
		"Queueing end of stream":                   "ストリーム終端をキューに入れています",
		"Processing stopped (%s) after %d frames":  "処理を停止しました (%s): %d フレーム",
		"Releasing from state %s":                  "状態 %s から解放しています",

		// Decoder
		"Configured %s backend for %s (%dx%d)":                   "%s バックエンドを %s 用に構成しました (%dx%d)",
		"Decoder stopped":                                        "デコーダーを停止しました",
		"Backend %s unavailable: %v":                             "バックエンド %s は利用できません: %v",
		"No decoder for %s":                                      "%s のデコーダーがありません",
		"Gate wait timed out after %v, re-checking (frame %d)":   "ゲート待機が %v でタイムアウトしました。再確認します (フレーム %d)",

		// Sink
		"Writing up to %d frames to %s": "最大 %d フレームを %s に書き込みます",
		"Saved %d frames to %s":         "%d フレームを %s に保存しました",

		// Warnings
		"Sample read failed: %v":         "サンプルの読み込みに失敗しました: %v",
		"Dropping sample: %v":            "サンプルを破棄します: %v",
		"Failed to save frame %d: %v":    "フレーム %d の保存に失敗しました: %v",
		"Backend error at %v: %v":        "%v でバックエンドエラー: %v",

		// Errors
		"Surface setup failed: %v":     "サーフェスの準備に失敗しました: %v",
		"Decoder setup failed: %v":     "デコーダーの準備に失敗しました: %v",
		"Decoder start failed: %v":     "デコーダーの開始に失敗しました: %v",
		"Decoder fault: %v":            "デコーダー障害: %v",
		"Failed to write report: %s":   "レポートの書き込みに失敗しました: %s",
		"Failed to format summary: %v": "サマリーの整形に失敗しました: %v",
	})
}
