package app

import (
	"fmt"
	"time"

	"attendance_line_bot/internal/domain/attendance"
	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/student"
)

// Persistent menu labels. The rich menu sends these as postbacks, but typing
// the label works too.
const (
	menuLabelAttendance = "出欠連絡"
	menuLabelStatus     = "出欠確認"
	menuLabelSettings   = "子どもの登録"
)

const (
	btnYes      = "はい"
	btnNo       = "いいえ"
	btnSkip     = "スキップ"
	btnNone     = "なし"
	btnPickDate = "別の日付"
)

const (
	textWelcome  = "はじめまして!こどもサポート塾の出欠連絡ボットです。\nまずは保護者の方のお名前を教えてください。"
	textGreet    = "こんにちは!メニューから操作を選んでください。"
	textFallback = "メッセージを受け付けました。出欠の連絡・確認はメニューから操作できます。"

	textAskGuardianName   = "保護者の方のお名前を教えてください。"
	textAskGuardianRetry  = "お名前を入力してください。"
	textAskChildName      = "お子さまのお名前を教えてください。"
	textAskChildNameRetry = "お子さまのお名前を入力してください。"
	textAskMoreChildren   = "他にお子さまを登録しますか?"
	textRegistrationDone  = "登録ありがとうございました!メニューから出欠連絡ができます。"

	textNoChildren = "お子さまがまだ登録されていません。先にお子さまの登録をお願いします。"

	textChooseStudent     = "どのお子さまの連絡ですか?"
	textChooseDate        = "どの日の連絡ですか?"
	textChooseDateRetry   = "日付を選ぶか、YYYY-MM-DD形式で入力してください。"
	textChooseStatus      = "出欠を選んでください。"
	textChooseStatusRetry = "出席・欠席・遅刻・未定から選んでください。"
	textAskComment        = "連絡事項があれば入力してください。(なければ「なし」)"

	textStatusChooseStudent = "どのお子さまの出欠を確認しますか?"
	textChooseRange         = "どの範囲を確認しますか?"
	textChooseRangeRetry    = "範囲を選ぶか、YYYY-MM-DD形式で日付を入力してください。"

	textSessionExpired = "セッションが切れてしまいました。お手数ですが、もう一度メニューから操作してください。"

	textUnanswered = "未回答"
)

func askChildGradeText(name string) string {
	return fmt.Sprintf("%sさんの学年を教えてください。", name)
}

var jpWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// formatDateJP renders a date the way the prompts show it: 3/14 (土).
func formatDateJP(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%d/%d (%s)", int(u.Month()), u.Day(), jpWeekdays[u.Weekday()])
}

func menuMessage(text string) line.Message {
	return line.Message{
		Text: text,
		QuickOptions: []line.QuickOption{
			{Label: menuLabelAttendance, PostbackData: "attendance:start", DisplayText: menuLabelAttendance},
			{Label: menuLabelStatus, PostbackData: "status:start", DisplayText: menuLabelStatus},
			{Label: menuLabelSettings, PostbackData: "settings:start", DisplayText: menuLabelSettings},
		},
	}
}

func studentOptions(f flow.Flow, students []*student.Student) []line.QuickOption {
	opts := make([]line.QuickOption, 0, len(students))
	for _, st := range students {
		pb := line.Postback{Flow: string(f), Key: "student", Value: st.ID}
		opts = append(opts, line.QuickOption{
			Label:        st.Name,
			PostbackData: pb.Encode(),
			DisplayText:  st.Name,
		})
	}
	return opts
}

var gradeChoices = [...]string{"小1", "小2", "小3", "小4", "小5", "小6", "中1", "中2", "中3"}

func gradeOptions(f flow.Flow) []line.QuickOption {
	opts := make([]line.QuickOption, 0, len(gradeChoices)+1)
	for _, g := range gradeChoices {
		pb := line.Postback{Flow: string(f), Key: "grade", Value: g}
		opts = append(opts, line.QuickOption{Label: g, PostbackData: pb.Encode(), DisplayText: g})
	}
	pb := line.Postback{Flow: string(f), Key: "grade", Value: "skip"}
	opts = append(opts, line.QuickOption{Label: btnSkip, PostbackData: pb.Encode(), DisplayText: btnSkip})
	return opts
}

func yesNoOptions(f flow.Flow) []line.QuickOption {
	yes := line.Postback{Flow: string(f), Key: "more", Value: "yes"}
	no := line.Postback{Flow: string(f), Key: "more", Value: "no"}
	return []line.QuickOption{
		{Label: btnYes, PostbackData: yes.Encode(), DisplayText: btnYes},
		{Label: btnNo, PostbackData: no.Encode(), DisplayText: btnNo},
	}
}

func dateOptions(dates []time.Time) []line.QuickOption {
	opts := make([]line.QuickOption, 0, len(dates)+1)
	for _, d := range dates {
		pb := line.Postback{Flow: string(flow.FlowAttendance), Key: "date", Value: d.Format("2006-01-02")}
		label := formatDateJP(d)
		opts = append(opts, line.QuickOption{Label: label, PostbackData: pb.Encode(), DisplayText: label})
	}
	opts = append(opts, line.QuickOption{
		Label:        btnPickDate,
		PostbackData: "attendance:date",
		DatePicker:   true,
	})
	return opts
}

func statusOptions() []line.QuickOption {
	statuses := attendance.AllStatuses()
	opts := make([]line.QuickOption, 0, len(statuses))
	for _, st := range statuses {
		pb := line.Postback{Flow: string(flow.FlowAttendance), Key: "status", Value: string(st)}
		opts = append(opts, line.QuickOption{Label: st.Label(), PostbackData: pb.Encode(), DisplayText: st.Label()})
	}
	return opts
}

func commentOptions() []line.QuickOption {
	pb := line.Postback{Flow: string(flow.FlowAttendance), Key: "comment", Value: "none"}
	return []line.QuickOption{
		{Label: btnNone, PostbackData: pb.Encode(), DisplayText: btnNone},
	}
}

func rangeOptions() []line.QuickOption {
	next3 := line.Postback{Flow: string(flow.FlowStatus), Key: "range", Value: "next3"}
	month := line.Postback{Flow: string(flow.FlowStatus), Key: "range", Value: "month"}
	return []line.QuickOption{
		{Label: "直近3回", PostbackData: next3.Encode(), DisplayText: "直近3回"},
		{Label: "今月", PostbackData: month.Encode(), DisplayText: "今月"},
		{Label: btnPickDate, PostbackData: "status:range", DatePicker: true},
	}
}
