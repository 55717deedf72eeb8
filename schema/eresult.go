package schema

import "strconv"

// EResult is the Steam result code carried by many callbacks.
type EResult int32

const (
	ResultNone               EResult = 0
	ResultOK                 EResult = 1
	ResultFail               EResult = 2
	ResultNoConnection       EResult = 3
	ResultInvalidPassword    EResult = 5
	ResultLoggedInElsewhere  EResult = 6
	ResultInvalidProtocolVer EResult = 7
	ResultInvalidParam       EResult = 8
	ResultFileNotFound       EResult = 9
	ResultBusy               EResult = 10
	ResultInvalidState       EResult = 11
	ResultAccessDenied       EResult = 15
	ResultTimeout            EResult = 16
	ResultBanned             EResult = 17
	ResultAccountNotFound    EResult = 18
	ResultServiceUnavailable EResult = 20
	ResultNotLoggedOn        EResult = 21
	ResultPending            EResult = 22
	ResultLimitExceeded      EResult = 25
	ResultRevoked            EResult = 26
	ResultExpired            EResult = 27
	ResultDuplicateRequest   EResult = 29
	ResultIOFailure          EResult = 37
	ResultCancelled          EResult = 52
)

var resultNames = map[EResult]string{
	ResultNone:               "None",
	ResultOK:                 "OK",
	ResultFail:               "Fail",
	ResultNoConnection:       "NoConnection",
	ResultInvalidPassword:    "InvalidPassword",
	ResultLoggedInElsewhere:  "LoggedInElsewhere",
	ResultInvalidProtocolVer: "InvalidProtocolVer",
	ResultInvalidParam:       "InvalidParam",
	ResultFileNotFound:       "FileNotFound",
	ResultBusy:               "Busy",
	ResultInvalidState:       "InvalidState",
	ResultAccessDenied:       "AccessDenied",
	ResultTimeout:            "Timeout",
	ResultBanned:             "Banned",
	ResultAccountNotFound:    "AccountNotFound",
	ResultServiceUnavailable: "ServiceUnavailable",
	ResultNotLoggedOn:        "NotLoggedOn",
	ResultPending:            "Pending",
	ResultLimitExceeded:      "LimitExceeded",
	ResultRevoked:            "Revoked",
	ResultExpired:            "Expired",
	ResultDuplicateRequest:   "DuplicateRequest",
	ResultIOFailure:          "IOFailure",
	ResultCancelled:          "Cancelled",
}

func (r EResult) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "EResult(" + strconv.Itoa(int(r)) + ")"
}

// OK reports whether r is ResultOK.
func (r EResult) OK() bool {
	return r == ResultOK
}
