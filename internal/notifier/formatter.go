package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"QuoteHarvester/internal/model"
)

// maxListed caps how many codes are spelled out per status line.
const maxListed = 20

// FormatSessionReport formats a run report into a Telegram message.
func FormatSessionReport(rep *model.RunReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>QuoteHarvester 收盘采集</b> | %s\n\n", rep.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("股票数: %s | 批次: %d | 轮询: %d\n",
		humanize.Comma(int64(rep.Symbols)), rep.Batches, rep.Ticks))
	b.WriteString(fmt.Sprintf("耗时: %s\n\n", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Second)))

	b.WriteString(fmt.Sprintf("✅ 已更新: %d\n", rep.Count(model.StatusUpdated)))
	b.WriteString(fmt.Sprintf("➖ 无成交价: %d\n", rep.Count(model.StatusPlaceholder)))
	writeCodes(&b, "❓ 未取得", rep.Codes(model.StatusUnresolved))
	writeCodes(&b, "❌ 写入失败", rep.Codes(model.StatusFailed))
	if rep.StoreWarnings > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d 个历史文件无法读取，已重建\n", rep.StoreWarnings))
	}
	return b.String()
}

func writeCodes(b *strings.Builder, label string, codes []string) {
	b.WriteString(fmt.Sprintf("%s: %d\n", label, len(codes)))
	if len(codes) == 0 {
		return
	}
	shown := codes
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	b.WriteString("  " + strings.Join(shown, ", "))
	if rest := len(codes) - len(shown); rest > 0 {
		b.WriteString(fmt.Sprintf(" …(+%d)", rest))
	}
	b.WriteString("\n")
}

// FormatStatus formats the last run for the /status command.
func FormatStatus(rep *model.RunReport, next time.Time) string {
	var b strings.Builder
	b.WriteString("📦 <b>采集状态</b>\n\n")
	if rep == nil {
		b.WriteString("尚未执行过采集\n")
	} else {
		b.WriteString(fmt.Sprintf("上次执行: %s (%s)\n", rep.StartedAt.Format("2006-01-02 15:04"), humanize.Time(rep.StartedAt)))
		b.WriteString(fmt.Sprintf("更新 %d / 无成交价 %d / 未取得 %d / 失败 %d\n",
			rep.Count(model.StatusUpdated), rep.Count(model.StatusPlaceholder),
			rep.Count(model.StatusUnresolved), rep.Count(model.StatusFailed)))
	}
	if !next.IsZero() {
		b.WriteString(fmt.Sprintf("下次执行: %s\n", next.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// NeedsAttention reports whether a run should be pushed to the operator.
func NeedsAttention(rep *model.RunReport) bool {
	return rep.Count(model.StatusUnresolved) > 0 || rep.Count(model.StatusFailed) > 0 || rep.StoreWarnings > 0
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "📖 <b>可用命令</b>\n\n" +
		"/run - 立即执行一次采集\n" +
		"/status - 查看上次采集结果\n" +
		"/help - 显示帮助"
}
