// Package i18n holds the user-visible message catalog for English and
// Chinese and resolves request locales against it.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Chinese = "zh"
)

var (
	supported = []language.Tag{language.English, language.Chinese}
	matcher   = language.NewMatcher(supported)
)

var catalog = map[string]map[string]string{
	English: {
		"agent.halted":             "🛑 Production Halted.",
		"agent.auth_error":         "Auth Error (403)",
		"agent.connection_error":   "Connection Error",
		"agent.busy":               "The agent is still working on the previous request.",
		"agent.tool_halted":        "halted before execution",
		"agent.layer_not_found":    "Layer not found",
		"agent.empty_canvas":       "Empty canvas",
		"batch.confirm":            "This will generate %d images. Continue?",
		"batch.cancelled":          "Batch cancelled after %d of %d tasks.",
		"batch.done":               "Batch finished: %d succeeded, %d failed.",
		"alert.enter_prompt":       "Please enter a prompt.",
		"alert.select_pose":        "Please select at least one pose.",
		"alert.select_scene":       "Please select at least one scene.",
		"alert.select_detail":      "Please select at least one detail.",
		"alert.pose_limit":         "Too many poses selected.",
		"alert.upload_base":        "Please upload a base product or model image.",
		"alert.upload_first":       "Please upload an image first.",
		"alert.upload_mannequin":   "Please upload the mannequin images.",
		"alert.upload_product":     "Please upload at least one product image.",
		"alert.upload_ref_garment": "Please upload a clothing reference image.",
		"alert.upload_ref_product": "Please upload a product reference image.",
		"alert.upload_skeleton":    "Please upload a skeleton image for the custom pose.",
		"alert.unknown_preset":     "Unknown preset selected.",
		"alert.unknown_mode":       "Unknown workflow mode.",
		"alert.auth_required":      "API key required. Please re-authenticate.",
		"alert.no_image_on_canvas": "No image on canvas.",
		"error.internal":           "Something went wrong. Please try again.",
		"error.not_found":          "Not found.",
		"error.rate_limited":       "Too many requests. Please slow down.",
		"error.unavailable":        "The image service is not available right now.",
	},
	Chinese: {
		"agent.halted":             "🛑 生产已停止。",
		"agent.auth_error":         "认证错误 (403)",
		"agent.connection_error":   "连接错误",
		"agent.busy":               "智能体仍在处理上一个请求。",
		"agent.tool_halted":        "执行前已停止",
		"agent.layer_not_found":    "未找到图层",
		"agent.empty_canvas":       "画布为空",
		"batch.confirm":            "即将生成 %d 张图片，是否继续？",
		"batch.cancelled":          "批量任务已取消（%d / %d）。",
		"batch.done":               "批量完成：成功 %d，失败 %d。",
		"alert.enter_prompt":       "请输入提示词。",
		"alert.select_pose":        "请至少选择一个姿势。",
		"alert.select_scene":       "请至少选择一个场景。",
		"alert.select_detail":      "请至少选择一个细节。",
		"alert.pose_limit":         "选择的姿势过多。",
		"alert.upload_base":        "请上传产品或模特底图。",
		"alert.upload_first":       "请先上传图片。",
		"alert.upload_mannequin":   "请上传人台图片。",
		"alert.upload_product":     "请至少上传一张产品图。",
		"alert.upload_ref_garment": "请上传服装参考图。",
		"alert.upload_ref_product": "请上传产品参考图。",
		"alert.upload_skeleton":    "自定义姿势需要上传骨骼图。",
		"alert.unknown_preset":     "所选预设不存在。",
		"alert.unknown_mode":       "未知的工作流模式。",
		"alert.auth_required":      "需要 API 密钥，请重新认证。",
		"alert.no_image_on_canvas": "画布上没有图片。",
		"error.internal":           "出错了，请重试。",
		"error.not_found":          "未找到。",
		"error.rate_limited":       "请求过于频繁，请稍后再试。",
		"error.unavailable":        "图像服务暂时不可用。",
	},
}

// Normalize maps any BCP 47 string or Accept-Language header onto a
// supported locale. Unparseable input yields English.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// Supported reports whether locale has a catalog.
func Supported(locale string) bool {
	_, ok := catalog[locale]
	return ok
}

// T returns the message for key in locale, formatted with args. Missing keys
// fall back to English, then to the key itself.
func T(locale, key string, args ...any) string {
	msg, ok := catalog[Normalize(locale)][key]
	if !ok {
		if msg, ok = catalog[English][key]; !ok {
			msg = key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
