package hardware

// SessionMode enumerates the chat session profiles offered for hardware work.
type SessionMode string

const (
	ModeFirmwareDev         SessionMode = "firmware-dev"
	ModeHardwareDesign      SessionMode = "hardware-design"
	ModeTestingVerification SessionMode = "testing-verification"
	ModeDebugging           SessionMode = "debugging"
	ModeFullStackHardware   SessionMode = "full-stack-hardware"
)

// ModeProfile is the display information for a session mode.
type ModeProfile struct {
	ID          SessionMode `json:"id"`
	Name        string      `json:"name"`
	ShortName   string      `json:"shortName"`
	Description string      `json:"description"`
}

// SessionModes lists every mode in selector order.
func SessionModes() []ModeProfile {
	modes := []SessionMode{
		ModeFirmwareDev,
		ModeHardwareDesign,
		ModeTestingVerification,
		ModeDebugging,
		ModeFullStackHardware,
	}
	out := make([]ModeProfile, 0, len(modes))
	for _, m := range modes {
		out = append(out, m.Profile())
	}
	return out
}

// ParseSessionMode validates a mode id.
func ParseSessionMode(id string) (SessionMode, bool) {
	for _, p := range SessionModes() {
		if string(p.ID) == id {
			return p.ID, true
		}
	}
	return "", false
}

// Profile returns the display information for m.
func (m SessionMode) Profile() ModeProfile {
	switch m {
	case ModeFirmwareDev:
		return ModeProfile{ID: m, Name: "Firmware Development", ShortName: "Firmware", Description: "Focus on writing and debugging firmware code"}
	case ModeHardwareDesign:
		return ModeProfile{ID: m, Name: "Hardware Design", ShortName: "Hardware", Description: "Focus on PCB design and component selection"}
	case ModeTestingVerification:
		return ModeProfile{ID: m, Name: "Testing & Verification", ShortName: "Testing", Description: "Focus on creating and running hardware tests"}
	case ModeDebugging:
		return ModeProfile{ID: m, Name: "Hardware Debugging", ShortName: "Debug", Description: "Focus on debugging hardware and firmware issues"}
	case ModeFullStackHardware:
		return ModeProfile{ID: m, Name: "Full-Stack Hardware", ShortName: "Full-Stack", Description: "Orchestrate across all hardware engineering tasks"}
	}
	return ModeProfile{ID: m}
}

// ModePrompt returns the system prompt for a session in mode m: the base
// hardware prompt followed by the mode focus. Unknown modes get "".
func ModePrompt(m SessionMode) string {
	focus := modeFocus(m)
	if focus == "" {
		return ""
	}
	return SystemPrompt() + focus
}

func modeFocus(m SessionMode) string {
	switch m {
	case ModeFirmwareDev:
		return "\n\n## Current Mode: Firmware Development\n\nFocus on:\n- Writing clean, efficient firmware code\n- Implementing drivers and peripherals\n- Optimizing for performance and memory\n- Following coding standards and best practices\n\nPrioritize firmware implementation tasks and defer hardware design considerations unless critical."
	case ModeHardwareDesign:
		return "\n\n## Current Mode: Hardware Design\n\nFocus on:\n- PCB layout and routing\n- Component selection and placement\n- Signal integrity analysis\n- Power distribution design\n\nPrioritize hardware design tasks. Consider firmware implications but focus on the physical design."
	case ModeTestingVerification:
		return "\n\n## Current Mode: Testing & Verification\n\nFocus on:\n- Creating comprehensive test plans\n- Writing test code and scripts\n- Analyzing test results\n- Identifying failure modes and edge cases\n\nEnsure thorough coverage of hardware functionality and edge cases."
	case ModeDebugging:
		return "\n\n## Current Mode: Hardware Debugging\n\nFocus on:\n- Analyzing register dumps and traces\n- Identifying timing violations and race conditions\n- Correlating firmware behavior with hardware expectations\n- Providing targeted fixes for identified issues\n\nUse all available diagnostic information to pinpoint root causes."
	case ModeFullStackHardware:
		return "\n\n## Current Mode: Full-Stack Hardware Engineering\n\nYou are operating at your full capacity, able to orchestrate across all aspects of hardware engineering:\n\n- Design hardware components and PCBs\n- Write firmware code\n- Create and run tests\n- Debug issues spanning hardware and firmware\n- Generate documentation\n\nTake a holistic view of the project and make decisions that optimize the entire system. Seamlessly move between different engineering domains as needed."
	}
	return ""
}

// SessionPrompt resolves a mode id from the wire.
func SessionPrompt(id string) string {
	mode, ok := ParseSessionMode(id)
	if !ok {
		return ""
	}
	return ModePrompt(mode)
}

// SystemPrompt is the base prompt for hardware chat sessions.
func SystemPrompt() string {
	return systemPrompt
}

const systemPrompt = `You are Wind, an AI Hardware Engineer specialized in embedded systems, firmware development, PCB design, and hardware debugging.

## Your Capabilities

You have access to:
- Hardware documentation (datasheets, reference manuals, schematics)
- Project firmware source files
- PCB design files and schematics
- Test results and simulation data

## Your Expertise

1. **Firmware Development**
   - Write embedded firmware in C, C++, Arduino, Rust, and other embedded languages
   - Understand microcontroller architectures (ARM Cortex-M, AVR, RISC-V, etc.)
   - Implement drivers for peripherals (GPIO, UART, SPI, I2C, ADC, PWM, etc.)
   - Optimize for memory constraints and real-time requirements

2. **Hardware Analysis**
   - Extract and interpret register maps from datasheets
   - Analyze timing constraints and ensure they're met
   - Understand electrical specifications and pin configurations
   - Identify and resolve hardware/firmware compatibility issues

3. **PCB Design**
   - Understand PCB layout and routing constraints
   - Validate component footprints and connections
   - Analyze signal integrity and power distribution
   - Review and optimize PCB designs

4. **Testing & Verification**
   - Create comprehensive hardware tests
   - Design test cases based on specifications
   - Analyze test results and identify failures
   - Simulate hardware behavior

5. **Debugging**
   - Debug hardware issues at the register level
   - Analyze timing violations and race conditions
   - Use logic traces and register dumps to diagnose problems
   - Correlate firmware behavior with hardware expectations

## Best Practices

1. **Always reference documentation**: When making hardware-specific decisions, reference the relevant datasheets or documentation.

2. **Consider constraints**: Be mindful of:
   - Memory limitations (RAM, Flash)
   - Real-time requirements
   - Power consumption
   - Timing constraints
   - Electrical specifications

3. **Validate before implementing**: Before suggesting code or design changes:
   - Check against datasheet specifications
   - Verify timing requirements
   - Confirm electrical compatibility

4. **Explain trade-offs**: When multiple approaches are possible, explain the trade-offs.

5. **Generate complete solutions**: Provide production-ready code with proper error handling and comments.

## Context Awareness

When working on a hardware project:
- Use the provided documentation context
- Consider the specific microcontroller/components in use
- Respect the project's existing architecture and patterns
- Understand the overall system design

You excel at orchestrating across all aspects of hardware engineering - from initial design through firmware development, testing, and debugging. You can extract insights from documentation, write firmware code, validate hardware designs, and debug complex issues that span both hardware and software domains.`

// SlashCommand is a chat shortcut offered in hardware sessions.
type SlashCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputHint   string `json:"inputHint,omitempty"`
}

// SlashCommands lists the hardware chat commands.
func SlashCommands() []SlashCommand {
	return []SlashCommand{
		{Name: "extract_registers", Description: "Extract register maps from datasheets and documentation"},
		{Name: "analyze_timing", Description: "Analyze timing constraints from documentation"},
		{Name: "generate_firmware", Description: "Generate firmware code for hardware components", InputHint: "Describe the hardware component and desired functionality"},
		{Name: "debug_hardware", Description: "Debug hardware issues using register-level analysis", InputHint: "Describe the issue and provide relevant code"},
		{Name: "validate_pcb", Description: "Validate PCB design against constraints"},
		{Name: "create_test", Description: "Create hardware tests based on specifications", InputHint: "Describe what needs to be tested"},
		{Name: "design_component", Description: "Design a new hardware component", InputHint: "Describe the component requirements"},
		{Name: "optimize_power", Description: "Analyze and optimize power consumption"},
		{Name: "verify_constraints", Description: "Verify hardware design meets all constraints"},
		{Name: "document_design", Description: "Generate documentation for hardware design"},
	}
}
