// Package main provides localization for the frameprocessor CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":    "入力",
		"Decoding": "デコード",
		"Output":   "出力",
		"Logging":  "ログ",

		// Commands
		"Decode MP4 video and hand frames to a sink at the consumer's pace": "MP4 動画をデコードし、消費側のペースでフレームをシンクに渡します",
		"Decode a video and deliver frames to a sink":                       "動画をデコードしてフレームをシンクに渡す",
		"List the tracks of an MP4 file":                                    "MP4 ファイルのトラックを一覧表示",

		// Input flags
		"YAML configuration file":             "YAML 設定ファイル",
		"Maximum number of frames to consume": "消費するフレームの上限数",

		// Decoding flags
		"Decoder backend (auto, software, ffmpeg, libaom, libav)": "デコーダーバックエンド（auto, software, ffmpeg, libaom, libav）",
		"Path to the ffmpeg binary":                               "ffmpeg 実行ファイルのパス",
		"Bounded wait of the frame gate in milliseconds":          "フレームゲートの待機上限（ミリ秒）",
		"Fault handling (silent, notify)":                         "障害時の扱い（silent, notify）",

		// Output flags
		"Frame sink (null, image)":                       "フレームシンク（null, image）",
		"Directory for image output":                     "画像の出力先ディレクトリ",
		"Image format (png, jpeg)":                       "画像形式（png, jpeg）",
		"JPEG quality (1-100)":                           "JPEG 品質（1-100）",
		"Draw frame number and timestamp on images":      "画像にフレーム番号とタイムスタンプを描画",
		"Resize images to this width":                    "画像をこの幅に縮小",
		"Write a run summary to this file":               "実行サマリーをこのファイルに書き込む",
		"Summary format (text, markdown, yaml, msgpack)": "サマリー形式（text, markdown, yaml, msgpack）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "すべてのログ出力を抑制",

		// Probe output
		"No tracks found":                         "トラックが見つかりません",
		"Track %d: %s (%s) %dx%d, timescale %d":   "トラック %d: %s (%s) %dx%d, タイムスケール %d",
		"Track %d: %s (%s)":                       "トラック %d: %s (%s)",

		// Errors
		"an input file is required": "入力ファイルを指定してください",
	})
}
